// Package selection holds the user's pending, uncommitted device picks.
//
// A Store is an immutable snapshot: every mutator returns a new Store and never
// touches the receiver, so a conflict check always sees one consistent state.
package selection

import (
	"fmt"
	"sort"
	"strings"

	"labreserve/internal/model"
)

// Key addresses one pick. It is comparable and safe to use as a map key.
type Key struct {
	DeviceID int64
	Date     string // YYYY-MM-DD
	Hour     int
	Hourly   bool
}

// String renders the legacy "deviceId-date[-hour]" form.
func (k Key) String() string {
	if k.Hourly {
		return fmt.Sprintf("%d-%s-%d", k.DeviceID, k.Date, k.Hour)
	}
	return fmt.Sprintf("%d-%s", k.DeviceID, k.Date)
}

// Selection is a pending intent to book one device for one day or one hour.
type Selection struct {
	DeviceID int64  `json:"device_id" yaml:"device_id"`
	Date     string `json:"date" yaml:"date"`
	Hour     *int   `json:"hour,omitempty" yaml:"hour,omitempty"`
}

// Key returns the selection's address.
func (s Selection) Key() Key {
	if s.Hour == nil {
		return Key{DeviceID: s.DeviceID, Date: s.Date}
	}
	return Key{DeviceID: s.DeviceID, Date: s.Date, Hour: *s.Hour, Hourly: true}
}

// IsWholeDay reports whether the pick spans the whole operational day.
func (s Selection) IsWholeDay() bool { return s.Hour == nil }

func (k Key) selection() Selection {
	if !k.Hourly {
		return Selection{DeviceID: k.DeviceID, Date: k.Date}
	}
	h := k.Hour
	return Selection{DeviceID: k.DeviceID, Date: k.Date, Hour: &h}
}

// Store is a snapshot of pending picks. The zero value is an empty store.
type Store struct {
	items map[Key]struct{}
}

// New returns an empty store.
func New() Store { return Store{} }

// FromSelections builds a store from a flat list, dropping invalid entries.
func FromSelections(list []Selection) Store {
	next := Store{items: make(map[Key]struct{}, len(list))}
	for _, s := range list {
		if k, ok := normalize(s.Key()); ok {
			next.items[k] = struct{}{}
		}
	}
	return next
}

func normalize(k Key) (Key, bool) {
	d, err := model.ParseDate(k.Date)
	if err != nil {
		return Key{}, false
	}
	k.Date = d.Format(model.DateLayout)
	if !k.Hourly {
		k.Hour = 0
	} else if k.Hour < 0 || k.Hour > 23 {
		return Key{}, false
	}
	return k, true
}

func (s Store) clone(extra int) Store {
	next := Store{items: make(map[Key]struct{}, len(s.items)+extra)}
	for k := range s.items {
		next.items[k] = struct{}{}
	}
	return next
}

// DayKey returns the key of a whole-day pick.
func DayKey(deviceID int64, date string) Key {
	return Key{DeviceID: deviceID, Date: strings.TrimSpace(date)}
}

// HourKey returns the key of a one-hour pick.
func HourKey(deviceID int64, date string, hour int) Key {
	return Key{DeviceID: deviceID, Date: strings.TrimSpace(date), Hour: hour, Hourly: true}
}

// ToggleDay flips whole-day membership of (deviceID, date).
func (s Store) ToggleDay(deviceID int64, date string) Store {
	return s.toggle(DayKey(deviceID, date))
}

// ToggleHour flips membership of a one-hour pick.
func (s Store) ToggleHour(deviceID int64, date string, hour int) Store {
	return s.toggle(HourKey(deviceID, date, hour))
}

func (s Store) toggle(k Key) Store {
	k, ok := normalize(k)
	if !ok {
		return s
	}
	next := s.clone(1)
	if _, exists := next.items[k]; exists {
		delete(next.items, k)
	} else {
		next.items[k] = struct{}{}
	}
	return next
}

// AddDeviceDates adds whole-day picks for every date.
func (s Store) AddDeviceDates(deviceID int64, dates []string) Store {
	return s.ImportDeviceSelections([]int64{deviceID}, dates)
}

// RemoveDeviceDates removes whole-day picks for every date.
func (s Store) RemoveDeviceDates(deviceID int64, dates []string) Store {
	next := s.clone(0)
	for _, date := range dates {
		if k, ok := normalize(DayKey(deviceID, date)); ok {
			delete(next.items, k)
		}
	}
	return next
}

// RemoveDay drops every pick, whole-day or hourly, for (deviceID, date).
func (s Store) RemoveDay(deviceID int64, date string) Store {
	k, ok := normalize(DayKey(deviceID, date))
	if !ok {
		return s
	}
	next := s.clone(0)
	for existing := range next.items {
		if existing.DeviceID == deviceID && existing.Date == k.Date {
			delete(next.items, existing)
		}
	}
	return next
}

// RemoveDevice drops every pick for a device.
func (s Store) RemoveDevice(deviceID int64) Store {
	next := s.clone(0)
	for k := range next.items {
		if k.DeviceID == deviceID {
			delete(next.items, k)
		}
	}
	return next
}

// ImportDeviceSelections adds whole-day picks for the cross product of devices
// and dates in one transition. Templates and bulk panels go through here so
// observers never see a half-applied import.
func (s Store) ImportDeviceSelections(deviceIDs []int64, dates []string) Store {
	next := s.clone(len(deviceIDs) * len(dates))
	for _, id := range deviceIDs {
		for _, date := range dates {
			if k, ok := normalize(DayKey(id, date)); ok {
				next.items[k] = struct{}{}
			}
		}
	}
	return next
}

// Without returns s minus every pick present in other.
func (s Store) Without(other Store) Store {
	next := s.clone(0)
	for k := range other.items {
		delete(next.items, k)
	}
	return next
}

// Clear returns an empty store.
func (s Store) Clear() Store { return Store{} }

// Len is the number of picks.
func (s Store) Len() int { return len(s.items) }

// Has reports membership of a key.
func (s Store) Has(k Key) bool {
	k, ok := normalize(k)
	if !ok {
		return false
	}
	_, exists := s.items[k]
	return exists
}

// IsDaySelected reports whether (deviceID, date) has a whole-day pick.
func (s Store) IsDaySelected(deviceID int64, date string) bool {
	return s.Has(DayKey(deviceID, date))
}

// IsHourSelected reports whether the one-hour pick is present.
func (s Store) IsHourSelected(deviceID int64, date string, hour int) bool {
	return s.Has(HourKey(deviceID, date, hour))
}

// Keys returns every key in canonical order.
func (s Store) Keys() []Key {
	keys := make([]Key, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// Selections flattens the store to a list ordered by device, date, then hour.
func (s Store) Selections() []Selection {
	keys := s.Keys()
	out := make([]Selection, len(keys))
	for i, k := range keys {
		out[i] = k.selection()
	}
	return out
}

// Grouped returns the picks per device, each list in canonical order.
func (s Store) Grouped() map[int64][]Selection {
	out := make(map[int64][]Selection)
	for _, k := range s.Keys() {
		out[k.DeviceID] = append(out[k.DeviceID], k.selection())
	}
	return out
}

// Devices lists the device ids with at least one pick, ascending.
func (s Store) Devices() []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for k := range s.items {
		if _, ok := seen[k.DeviceID]; ok {
			continue
		}
		seen[k.DeviceID] = struct{}{}
		ids = append(ids, k.DeviceID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Span returns the first and last picked dates. ok is false for an empty store.
func (s Store) Span() (first, last string, ok bool) {
	for k := range s.items {
		if !ok || k.Date < first {
			first = k.Date
		}
		if !ok || k.Date > last {
			last = k.Date
		}
		ok = true
	}
	return first, last, ok
}

// SortKeys orders keys by device, date, whole-day before hourly, then hour.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.DeviceID != b.DeviceID {
			return a.DeviceID < b.DeviceID
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Hourly != b.Hourly {
			return !a.Hourly
		}
		return a.Hour < b.Hour
	})
}
