package model

// GroupDevice is one device inside a grouped booking with the dates it is held.
type GroupDevice struct {
	DeviceID   int64    `json:"device_id"`
	DeviceName string   `json:"device_name,omitempty"`
	DeviceType string   `json:"device_type,omitempty"`
	Dates      []string `json:"dates"`
}

// Label renders the device the same way Device.Label does.
func (g GroupDevice) Label() string {
	return Device{ID: g.DeviceID, Type: g.DeviceType, Name: g.DeviceName}.Label()
}

// DateRange is an inclusive run of consecutive calendar dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GalleryEntry lists the contiguous date runs for one device.
type GalleryEntry struct {
	DeviceID int64       `json:"device_id"`
	Label    string      `json:"label"`
	Ranges   []DateRange `json:"ranges"`
}

// GroupSummary is the display digest derived for a merged session.
type GroupSummary struct {
	DeviceLabels []string       `json:"device_labels"`
	DateLabel    string         `json:"date_label"`
	Gallery      []GalleryEntry `json:"gallery"`
}

// GroupedBooking is one logical multi-device session as seen by a viewer.
type GroupedBooking struct {
	GroupedBookingID string        `json:"grouped_booking_id"`
	OwnerID          *int64        `json:"owner_id,omitempty"`
	OwnerUsername    string        `json:"owner_username,omitempty"`
	Collaborators    []string      `json:"collaborators"`
	Devices          []GroupDevice `json:"devices"`
	DeviceCount      int           `json:"device_count"`
	Status           Status        `json:"status"`
	StartDate        string        `json:"start_date"`
	EndDate          string        `json:"end_date"`
	CreatedAt        string        `json:"created_at,omitempty"`
	BookingIDs       []int64       `json:"booking_ids,omitempty"`
	OwnerBookingIDs  []int64       `json:"owner_booking_ids,omitempty"`
	IsOwner          bool          `json:"is_owner"`
	IsCollaborator   bool          `json:"is_collaborator"`
	Summary          *GroupSummary `json:"summary,omitempty"`
}
