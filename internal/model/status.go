package model

import "strings"

// Status is the lifecycle state of a committed booking.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusConflicting Status = "CONFLICTING"
	StatusConfirmed   Status = "CONFIRMED"
	StatusApproved    Status = "APPROVED"
	StatusDeclined    Status = "DECLINED"
	StatusRejected    Status = "REJECTED"
	StatusCancelled   Status = "CANCELLED"
	StatusExpired     Status = "EXPIRED"
)

// NormalizeStatus upper-cases and trims a raw status string.
func NormalizeStatus(s string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(s)))
}

// IsActive reports whether bookings in this status still hold the device.
func (s Status) IsActive() bool {
	switch NormalizeStatus(string(s)) {
	case StatusCancelled, StatusExpired, StatusRejected, StatusDeclined:
		return false
	}
	return true
}

func (s Status) String() string { return string(s) }
