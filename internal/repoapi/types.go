package repoapi

import "labreserve/internal/model"

// CreateBookingsRequest is the body of POST /bookings.
type CreateBookingsRequest struct {
	UserID           int64                `json:"user_id"`
	Message          string               `json:"message"`
	Bookings         []model.BookingRange `json:"bookings"`
	Collaborators    []string             `json:"collaborators"`
	GroupedBookingID string               `json:"grouped_booking_id,omitempty"`
}

// CreateBookingsResponse is the repository's answer to a successful write.
type CreateBookingsResponse struct {
	Message          string `json:"message"`
	Count            int    `json:"count"`
	GroupedBookingID string `json:"grouped_booking_id"`
}

// UserCandidate is one hit from the user search endpoint.
type UserCandidate struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Favorite is a saved session template. The engine passes it through untouched.
type Favorite struct {
	ID               int64            `json:"id,omitempty"`
	UserID           int64            `json:"user_id,omitempty"`
	Name             string           `json:"name,omitempty"`
	GroupedBookingID string           `json:"grouped_booking_id,omitempty"`
	DeviceSnapshot   []map[string]any `json:"device_snapshot,omitempty"`
	CreatedAt        string           `json:"created_at,omitempty"`
	UpdatedAt        string           `json:"updated_at,omitempty"`
}
