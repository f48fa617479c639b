package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date format exchanged with the repository.
	DateLayout = "2006-01-02"
	// TimestampLayout is the zone-less ISO-8601 format used for submitted ranges.
	TimestampLayout = "2006-01-02T15:04:05"
)

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTimestamp parses the date/time strings the repository returns. Zone offsets
// are honoured when present; otherwise the value is taken as UTC wall time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// OperationalDay maps an hour pick on an operational date to wall-clock time.
// Hours before StartHour form the "night" segment and fall on the following
// calendar day. The zero value is a plain midnight-to-midnight day.
type OperationalDay struct {
	StartHour int `yaml:"day_start_hour"`
}

// IsNight reports whether hour belongs to the night segment.
func (o OperationalDay) IsNight(hour int) bool {
	return o.StartHour > 0 && hour < o.StartHour
}

// Ordinal is the position of hour within the operational day.
func (o OperationalDay) Ordinal(hour int) int {
	if o.IsNight(hour) {
		return hour + 24 - o.StartHour
	}
	return hour - o.StartHour
}

// SlotStart returns the wall-clock start of the one-hour slot.
func (o OperationalDay) SlotStart(date time.Time, hour int) time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
	if o.IsNight(hour) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// Locate is the inverse of SlotStart: the operational date and hour a wall-clock
// slot start belongs to.
func (o OperationalDay) Locate(t time.Time) (time.Time, int) {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if o.IsNight(t.Hour()) {
		date = date.AddDate(0, 0, -1)
	}
	return date, t.Hour()
}

// WholeDay returns the [00:01, 23:59] window a whole-day pick covers.
func WholeDay(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 1, 0, 0, date.Location()),
		time.Date(y, m, d, 23, 59, 0, 0, date.Location())
}
