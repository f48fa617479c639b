package planner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"labreserve/internal/conflict"
	"labreserve/internal/selection"
)

// PlanFile is a pending session written by hand as YAML:
//
//	actor: {user_id: 1, username: alice}
//	message: lab work
//	collaborators: [carol]
//	picks:
//	  - device_id: 1
//	    dates: [2024-01-01, 2024-01-02]
//	  - device_id: 2
//	    dates: [2024-01-03]
//	    hours: [9, 10, 11]
type PlanFile struct {
	Actor struct {
		UserID   *int64 `yaml:"user_id"`
		Username string `yaml:"username"`
	} `yaml:"actor"`
	Message          string     `yaml:"message"`
	Collaborators    []string   `yaml:"collaborators"`
	Escalate         bool       `yaml:"escalate"`
	GroupedBookingID string     `yaml:"grouped_booking_id"`
	Picks            []PlanPick `yaml:"picks"`
}

// PlanPick selects whole days, or the listed hours of each day when Hours is
// set.
type PlanPick struct {
	DeviceID int64    `yaml:"device_id"`
	Dates    []string `yaml:"dates"`
	Hours    []int    `yaml:"hours"`
}

// LoadPlanFile parses a plan from path.
func LoadPlanFile(path string) (*PlanFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var plan PlanFile
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if len(plan.Picks) == 0 {
		return nil, fmt.Errorf("plan %s has no picks", path)
	}
	return &plan, nil
}

// ActorOf returns the identity conflicts are checked for.
func (f *PlanFile) ActorOf() conflict.Actor {
	return conflict.Actor{UserID: f.Actor.UserID, Username: f.Actor.Username}
}

// Store builds the selection snapshot in one step. Invalid dates and hours
// are dropped.
func (f *PlanFile) Store() selection.Store {
	var picks []selection.Selection
	for _, p := range f.Picks {
		for _, date := range p.Dates {
			if len(p.Hours) == 0 {
				picks = append(picks, selection.Selection{DeviceID: p.DeviceID, Date: date})
				continue
			}
			for _, h := range p.Hours {
				picks = append(picks, selection.Selection{DeviceID: p.DeviceID, Date: date, Hour: &h})
			}
		}
	}
	return selection.FromSelections(picks)
}
