package compress

import (
	"sort"
	"time"

	"labreserve/internal/model"
)

// GalleryRanges groups raw YYYY-MM-DD strings into inclusive runs of consecutive
// days, the same contiguity rule the daily compressor uses. Duplicates collapse
// and unparseable strings are dropped.
func GalleryRanges(dates []string) []model.DateRange {
	seen := make(map[time.Time]struct{}, len(dates))
	sorted := make([]time.Time, 0, len(dates))
	for _, s := range dates {
		d, err := model.ParseDate(s)
		if err != nil {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		sorted = append(sorted, d)
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var out []model.DateRange
	first, last := sorted[0], sorted[0]
	for _, d := range sorted[1:] {
		if d.Equal(last.AddDate(0, 0, 1)) {
			last = d
			continue
		}
		out = append(out, dateRange(first, last))
		first, last = d, d
	}
	return append(out, dateRange(first, last))
}

func dateRange(first, last time.Time) model.DateRange {
	return model.DateRange{Start: first.Format(model.DateLayout), End: last.Format(model.DateLayout)}
}
