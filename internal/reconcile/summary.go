package reconcile

import (
	"sort"

	"labreserve/internal/compress"
	"labreserve/internal/model"
)

const (
	labelLayout = "Jan 2, 2006"
	rangeSep    = " – "
)

// Summarize derives the display digest of a session.
func Summarize(g model.GroupedBooking) model.GroupSummary {
	s := model.GroupSummary{DateLabel: DateLabel(g.StartDate, g.EndDate)}
	for _, d := range g.Devices {
		label := d.Label()
		s.DeviceLabels = append(s.DeviceLabels, label)
		s.Gallery = append(s.Gallery, model.GalleryEntry{
			DeviceID: d.DeviceID,
			Label:    label,
			Ranges:   compress.GalleryRanges(d.Dates),
		})
	}
	sort.Strings(s.DeviceLabels)
	return s
}

// DateLabel renders an inclusive date span for humans.
func DateLabel(start, end string) string {
	if start == "" && end == "" {
		return ""
	}
	if end == "" {
		end = start
	}
	if start == "" {
		start = end
	}
	s, err := model.ParseDate(start)
	if err != nil {
		return start + rangeSep + end
	}
	e, err := model.ParseDate(end)
	if err != nil {
		return start + rangeSep + end
	}

	switch {
	case s.Equal(e):
		return s.Format(labelLayout)
	case s.Year() == e.Year():
		return s.Format("Jan 2") + rangeSep + e.Format(labelLayout)
	}
	return s.Format(labelLayout) + rangeSep + e.Format(labelLayout)
}
