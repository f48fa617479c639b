package model

import (
	"strings"
	"time"
)

// Booking is a committed reservation row as returned by the for-week endpoint.
type Booking struct {
	ID               int64    `json:"booking_id"`
	UserID           *int64   `json:"user_id,omitempty"`
	Username         string   `json:"username,omitempty"`
	OwnerUsername    string   `json:"owner_username,omitempty"`
	DeviceID         int64    `json:"device_id"`
	DeviceType       string   `json:"device_type,omitempty"`
	DeviceName       string   `json:"device_name,omitempty"`
	StartTime        string   `json:"start_time"`
	EndTime          string   `json:"end_time"`
	Status           Status   `json:"status"`
	GroupedBookingID string   `json:"grouped_booking_id,omitempty"`
	Collaborators    []string `json:"collaborators"`
	IsCollaborator   bool     `json:"is_collaborator"`
}

// Interval parses the booking's start and end timestamps.
func (b *Booking) Interval() (start, end time.Time, err error) {
	if start, err = ParseTimestamp(b.StartTime); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = ParseTimestamp(b.EndTime); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// OverlapsWith reports whether [start, end) intersects the booking.
// Unparseable bookings never overlap.
func (b *Booking) OverlapsWith(start, end time.Time) bool {
	bStart, bEnd, err := b.Interval()
	if err != nil {
		return false
	}
	return start.Before(bEnd) && end.After(bStart)
}

// IsActive reports whether the booking still holds its device.
func (b *Booking) IsActive() bool {
	return b.Status.IsActive()
}

// SharedWith reports whether username owns or collaborates on the booking.
// Comparison is case-insensitive; an empty username matches nothing.
func (b *Booking) SharedWith(username string) bool {
	username = strings.TrimSpace(username)
	if username == "" {
		return false
	}
	if strings.EqualFold(b.OwnerUsername, username) || strings.EqualFold(b.Username, username) {
		return true
	}
	for _, c := range b.Collaborators {
		if strings.EqualFold(strings.TrimSpace(c), username) {
			return true
		}
	}
	return false
}

// BookingRange is one compressed submission unit.
type BookingRange struct {
	DeviceType string `json:"device_type"`
	DeviceName string `json:"device_name"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Status     Status `json:"status"`
}
