// Package compress folds scattered day and hour picks into the minimal set of
// contiguous booking ranges.
package compress

import (
	"sort"
	"time"

	"labreserve/internal/model"
	"labreserve/internal/selection"
)

// Compressor turns per-device selections into submission ranges.
type Compressor struct {
	Day model.OperationalDay
}

// Compress is Compressor{}.Compress.
func Compress(device model.Device, selections []selection.Selection) []model.BookingRange {
	return Compressor{}.Compress(device, selections)
}

type unit struct {
	date    time.Time
	hour    int
	ordinal int
}

// Compress merges the device's picks. Whole-day picks on consecutive calendar
// days become one [first 00:01, last 23:59] range; consecutive hours inside one
// operational day become one [start:00, end:00) range. An hourly pick on a date
// that also has a whole-day pick is covered by the whole day and dropped.
// Selections for other devices and malformed picks are ignored.
func (c Compressor) Compress(device model.Device, selections []selection.Selection) []model.BookingRange {
	days := make(map[time.Time]struct{})
	hours := make(map[time.Time]map[int]struct{})

	for _, sel := range selections {
		if sel.DeviceID != device.ID {
			continue
		}
		date, err := model.ParseDate(sel.Date)
		if err != nil {
			continue
		}
		if sel.IsWholeDay() {
			days[date] = struct{}{}
			continue
		}
		h := *sel.Hour
		if h < 0 || h > 23 {
			continue
		}
		if hours[date] == nil {
			hours[date] = make(map[int]struct{})
		}
		hours[date][h] = struct{}{}
	}

	var units []unit
	for date, set := range hours {
		if _, whole := days[date]; whole {
			continue
		}
		for h := range set {
			units = append(units, unit{date: date, hour: h, ordinal: c.Day.Ordinal(h)})
		}
	}

	out := c.daily(device, days)
	return append(out, c.hourly(device, units)...)
}

func (c Compressor) daily(device model.Device, days map[time.Time]struct{}) []model.BookingRange {
	if len(days) == 0 {
		return nil
	}
	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var out []model.BookingRange
	first, last := sorted[0], sorted[0]
	flush := func() {
		start, _ := model.WholeDay(first)
		_, end := model.WholeDay(last)
		out = append(out, newRange(device, start, end))
	}
	for _, d := range sorted[1:] {
		if d.Equal(last.AddDate(0, 0, 1)) {
			last = d
			continue
		}
		flush()
		first, last = d, d
	}
	flush()
	return out
}

func (c Compressor) hourly(device model.Device, units []unit) []model.BookingRange {
	if len(units) == 0 {
		return nil
	}
	sort.Slice(units, func(i, j int) bool {
		if !units[i].date.Equal(units[j].date) {
			return units[i].date.Before(units[j].date)
		}
		return units[i].ordinal < units[j].ordinal
	})

	var out []model.BookingRange
	run := []unit{units[0]}
	for _, u := range units[1:] {
		prev := run[len(run)-1]
		if u.date.Equal(prev.date) && u.ordinal == prev.ordinal+1 {
			run = append(run, u)
			continue
		}
		out = append(out, c.hourRange(device, run))
		run = []unit{u}
	}
	return append(out, c.hourRange(device, run))
}

// hourRange converts one run of consecutive slots into a range. Slot-to-hour
// mapping wraps at midnight, so the end moves to the next calendar day when the
// run finishes in the night segment or the end hour is not after the start hour.
func (c Compressor) hourRange(device model.Device, run []unit) model.BookingRange {
	first, last := run[0], run[len(run)-1]
	start := c.Day.SlotStart(first.date, first.hour)

	endHour := (last.hour + 1) % 24
	endDate := last.date
	if c.Day.IsNight(last.hour) || endHour <= first.hour {
		endDate = endDate.AddDate(0, 0, 1)
	}
	end := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), endHour, 0, 0, 0, endDate.Location())
	return newRange(device, start, end)
}

func newRange(device model.Device, start, end time.Time) model.BookingRange {
	return model.BookingRange{
		DeviceType: device.Type,
		DeviceName: device.Name,
		StartTime:  model.FormatTimestamp(start),
		EndTime:    model.FormatTimestamp(end),
	}
}

// Expand maps ranges back to the selections they cover for deviceID.
// Unparseable ranges are skipped.
func (c Compressor) Expand(deviceID int64, ranges []model.BookingRange) []selection.Selection {
	var picks []selection.Selection
	for _, r := range ranges {
		start, err := model.ParseTimestamp(r.StartTime)
		if err != nil {
			continue
		}
		end, err := model.ParseTimestamp(r.EndTime)
		if err != nil || !end.After(start) {
			continue
		}

		if isWholeDayRange(start, end) {
			for d := truncateDay(start); !d.After(truncateDay(end)); d = d.AddDate(0, 0, 1) {
				picks = append(picks, selection.Selection{DeviceID: deviceID, Date: d.Format(model.DateLayout)})
			}
			continue
		}
		for t := start; t.Before(end); t = t.Add(time.Hour) {
			date, h := c.Day.Locate(t)
			picks = append(picks, selection.Selection{DeviceID: deviceID, Date: date.Format(model.DateLayout), Hour: &h})
		}
	}
	return selection.FromSelections(picks).Selections()
}

func isWholeDayRange(start, end time.Time) bool {
	return start.Hour() == 0 && start.Minute() == 1 && end.Hour() == 23 && end.Minute() == 59
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
