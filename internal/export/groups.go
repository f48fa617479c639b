package export

import (
	"fmt"
	"io"
	"strings"

	"labreserve/internal/model"
)

var (
	sessionColumns = []string{"Session", "Status", "Dates", "Devices", "Owner", "Collaborators", "Created"}
	deviceColumns  = []string{"Session", "Device", "From", "To"}
	bookingColumns = []string{"Booking", "Device", "Start", "End", "Status", "Owner"}
)

// Groups writes one "Sessions" sheet row per session and one "Devices" sheet
// row per contiguous device range. Groups are expected to be merged already.
func Groups(wr io.Writer, groups []model.GroupedBooking) error {
	wb := NewWorkbook()
	defer wb.Close()

	if err := wb.AddSheet("Sessions"); err != nil {
		return err
	}
	if err := wb.WriteHeader(sessionColumns); err != nil {
		return err
	}
	for _, g := range groups {
		summary := summaryOf(g)
		row := []any{
			g.GroupedBookingID,
			string(g.Status),
			summary.DateLabel,
			strings.Join(summary.DeviceLabels, ", "),
			g.OwnerUsername,
			strings.Join(g.Collaborators, ", "),
			g.CreatedAt,
		}
		if err := wb.WriteRow(row); err != nil {
			return fmt.Errorf("write session %s: %w", g.GroupedBookingID, err)
		}
	}

	if err := wb.AddSheet("Devices"); err != nil {
		return err
	}
	if err := wb.WriteHeader(deviceColumns); err != nil {
		return err
	}
	for _, g := range groups {
		for _, entry := range summaryOf(g).Gallery {
			for _, r := range entry.Ranges {
				if err := wb.WriteRow([]any{g.GroupedBookingID, entry.Label, r.Start, r.End}); err != nil {
					return fmt.Errorf("write device %d: %w", entry.DeviceID, err)
				}
			}
		}
	}

	return wb.Save(wr)
}

// Bookings writes the committed bookings of a window to a "Bookings" sheet.
func Bookings(wr io.Writer, bookings []model.Booking) error {
	wb := NewWorkbook()
	defer wb.Close()

	if err := wb.AddSheet("Bookings"); err != nil {
		return err
	}
	if err := wb.WriteHeader(bookingColumns); err != nil {
		return err
	}
	for _, b := range bookings {
		device := model.Device{ID: b.DeviceID, Type: b.DeviceType, Name: b.DeviceName}
		row := []any{b.ID, device.Label(), b.StartTime, b.EndTime, string(b.Status), b.OwnerUsername}
		if err := wb.WriteRow(row); err != nil {
			return fmt.Errorf("write booking %d: %w", b.ID, err)
		}
	}
	return wb.Save(wr)
}

func summaryOf(g model.GroupedBooking) model.GroupSummary {
	if g.Summary != nil {
		return *g.Summary
	}
	return model.GroupSummary{}
}
