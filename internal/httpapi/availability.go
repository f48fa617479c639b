package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"labreserve/internal/conflict"
	"labreserve/internal/metrics"
	"labreserve/internal/model"
	"labreserve/internal/selection"
)

// AvailabilityRequest is the body of POST /api/availability.
type AvailabilityRequest struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	DeviceIDs []int64 `json:"device_ids,omitempty"`
	UserID    *int64  `json:"user_id,omitempty"`
	Username  string  `json:"username,omitempty"`
}

// DateAvailability is one device-day.
type DateAvailability struct {
	Date       string  `json:"date"`
	Available  bool    `json:"available"`
	BookingIDs []int64 `json:"booking_ids,omitempty"`
}

// DeviceAvailability lists a device's days.
type DeviceAvailability struct {
	ID           int64              `json:"id"`
	Label        string             `json:"label"`
	Availability []DateAvailability `json:"availability"`
}

// AvailabilityResponse is the answer to POST /api/availability.
type AvailabilityResponse struct {
	Devices []DeviceAvailability `json:"devices"`
	Period  struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"period"`
	// IncompleteWeeks lists weeks that failed to load. Their days may show
	// as available even if they are not.
	IncompleteWeeks []string `json:"incomplete_weeks,omitempty"`
}

// handleAvailability reports, per device and date, whether a whole-day pick
// by the caller would conflict with someone else's booking.
// POST /api/availability
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req AvailabilityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, end, err := validateAvailabilityRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	devices := s.devices.List()
	if len(req.DeviceIDs) > 0 {
		wanted := make(map[int64]bool, len(req.DeviceIDs))
		for _, id := range req.DeviceIDs {
			wanted[id] = true
		}
		filtered := devices[:0]
		for _, d := range devices {
			if wanted[d.ID] {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	var picks []selection.Selection
	for _, d := range devices {
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			picks = append(picks, selection.Selection{DeviceID: d.ID, Date: day.Format(model.DateLayout)})
		}
	}

	view := s.bookings.Range(r.Context(), start, end.AddDate(0, 0, 1))
	actor := conflict.Actor{UserID: req.UserID, Username: req.Username}
	hits := conflict.Detector{Day: s.day}.DetectDetailed(picks, view.Bookings(), actor)

	resp := AvailabilityResponse{Devices: make([]DeviceAvailability, 0, len(devices))}
	resp.Period.Start = req.StartDate
	resp.Period.End = req.EndDate
	resp.IncompleteWeeks = view.Failed()

	for _, d := range devices {
		entry := DeviceAvailability{ID: d.ID, Label: d.Label()}
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			date := day.Format(model.DateLayout)
			blocking := hits[selection.DayKey(d.ID, date)]
			da := DateAvailability{Date: date, Available: len(blocking) == 0}
			for _, b := range blocking {
				da.BookingIDs = append(da.BookingIDs, b.ID)
			}
			entry.Availability = append(entry.Availability, da)
		}
		resp.Devices = append(resp.Devices, entry)
	}

	writeJSON(w, http.StatusOK, resp)
}

func validateAvailabilityRequest(req *AvailabilityRequest) (start, end time.Time, err error) {
	if req.StartDate == "" || req.EndDate == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date and end_date are required")
	}

	start, err = model.ParseDate(req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format; expected YYYY-MM-DD")
	}
	end, err = model.ParseDate(req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format; expected YYYY-MM-DD")
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before or equal to end_date")
	}
	if days := int(end.Sub(start).Hours() / 24); days > MaxAvailabilityDaysRange {
		return time.Time{}, time.Time{}, fmt.Errorf("date range exceeds maximum of %d days", MaxAvailabilityDaysRange)
	}

	return start, end, nil
}
