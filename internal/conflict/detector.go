// Package conflict finds pending selections that collide with committed bookings.
package conflict

import (
	"time"

	"labreserve/internal/model"
	"labreserve/internal/selection"
)

// Actor identifies the user making the selections. Bookings owned by or shared
// with the actor never count as conflicts.
type Actor struct {
	UserID   *int64
	Username string
}

func (a Actor) owns(b *model.Booking) bool {
	if a.UserID != nil && b.UserID != nil && *a.UserID == *b.UserID {
		return true
	}
	return b.SharedWith(a.Username)
}

// Set is the set of conflicting selection keys.
type Set map[selection.Key]struct{}

// Has reports whether k conflicts.
func (s Set) Has(k selection.Key) bool {
	_, ok := s[k]
	return ok
}

// Len is the number of conflicting keys.
func (s Set) Len() int { return len(s) }

// Keys returns the conflicting keys in canonical order.
func (s Set) Keys() []selection.Key {
	keys := make([]selection.Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	selection.SortKeys(keys)
	return keys
}

// Strings renders the keys in their legacy string form.
func (s Set) Strings() []string {
	keys := s.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// Detector evaluates selections against bookings. The zero value uses a plain
// midnight-to-midnight operational day.
type Detector struct {
	Day model.OperationalDay
}

// Detect is Detector{}.Detect.
func Detect(selections []selection.Selection, bookings []model.Booking, actor Actor) Set {
	return Detector{}.Detect(selections, bookings, actor)
}

// Detect returns the keys of selections that overlap an active booking on the
// same device which the actor neither owns nor shares.
func (d Detector) Detect(selections []selection.Selection, bookings []model.Booking, actor Actor) Set {
	out := make(Set)
	for k := range d.DetectDetailed(selections, bookings, actor) {
		out[k] = struct{}{}
	}
	return out
}

// DetectDetailed is Detect but also reports which bookings each key collides with.
func (d Detector) DetectDetailed(selections []selection.Selection, bookings []model.Booking, actor Actor) map[selection.Key][]model.Booking {
	out := make(map[selection.Key][]model.Booking)
	if len(selections) == 0 || len(bookings) == 0 {
		return out
	}

	byDevice := make(map[int64][]*model.Booking)
	for i := range bookings {
		b := &bookings[i]
		if !b.IsActive() || actor.owns(b) {
			continue
		}
		byDevice[b.DeviceID] = append(byDevice[b.DeviceID], b)
	}
	if len(byDevice) == 0 {
		return out
	}

	for _, sel := range selections {
		candidates := byDevice[sel.DeviceID]
		if len(candidates) == 0 {
			continue
		}
		start, end, ok := d.slot(sel)
		if !ok {
			continue
		}
		for _, b := range candidates {
			if b.OverlapsWith(start, end) {
				k := sel.Key()
				out[k] = append(out[k], *b)
			}
		}
	}
	return out
}

func (d Detector) slot(sel selection.Selection) (time.Time, time.Time, bool) {
	date, err := model.ParseDate(sel.Date)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	if sel.IsWholeDay() {
		start, end := model.WholeDay(date)
		return start, end, true
	}
	if *sel.Hour < 0 || *sel.Hour > 23 {
		return time.Time{}, time.Time{}, false
	}
	start := d.Day.SlotStart(date, *sel.Hour)
	return start, start.Add(time.Hour), true
}
