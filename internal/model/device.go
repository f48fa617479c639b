package model

import "fmt"

// Device is a bookable testbed device.
type Device struct {
	ID   int64  `json:"id" yaml:"id"`
	Type string `json:"deviceType" yaml:"type"`
	Name string `json:"deviceName" yaml:"name"`
}

// Label renders "Type - Name", the form used in session summaries.
func (d Device) Label() string {
	switch {
	case d.Type == "" && d.Name == "":
		return fmt.Sprintf("Device %d", d.ID)
	case d.Type == "":
		return d.Name
	case d.Name == "":
		return d.Type
	}
	return d.Type + " - " + d.Name
}
