// Package reconcile folds the per-viewer records of grouped booking sessions
// into one deduplicated entry per session.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"labreserve/internal/model"
)

// Merge folds records sharing a grouped_booking_id into one. Records without an
// id are keyed by their first booking id, or by a fresh random key when they
// have none, so they never merge with each other. The result is ordered by
// created_at descending and Merge(Merge(x)) equals Merge(x).
func Merge(raw []model.GroupedBooking) []model.GroupedBooking {
	index := make(map[string]int, len(raw))
	var out []model.GroupedBooking

	for _, rec := range raw {
		rec = clone(rec)
		key := groupKey(rec)
		rec.GroupedBookingID = key

		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, rec)
			continue
		}
		out[i] = fold(out[i], rec)
	}

	for i := range out {
		out[i] = normalize(out[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].GroupedBookingID < out[j].GroupedBookingID
	})
	return out
}

func groupKey(rec model.GroupedBooking) string {
	if id := strings.TrimSpace(rec.GroupedBookingID); id != "" {
		return id
	}
	if len(rec.BookingIDs) > 0 {
		return fmt.Sprintf("booking-%d", rec.BookingIDs[0])
	}
	return "local-" + uuid.NewString()
}

func clone(rec model.GroupedBooking) model.GroupedBooking {
	devices := make([]model.GroupDevice, len(rec.Devices))
	for i, d := range rec.Devices {
		d.Dates = append([]string(nil), d.Dates...)
		devices[i] = d
	}
	rec.Devices = devices
	rec.Collaborators = append([]string(nil), rec.Collaborators...)
	rec.BookingIDs = append([]int64(nil), rec.BookingIDs...)
	rec.OwnerBookingIDs = append([]int64(nil), rec.OwnerBookingIDs...)
	return rec
}

// fold merges incoming into acc. The owner's record is authoritative for
// ownership and device metadata.
func fold(acc, incoming model.GroupedBooking) model.GroupedBooking {
	acc.Devices = unionDevices(acc.Devices, incoming.Devices, incoming.IsOwner)
	acc.Collaborators = append(acc.Collaborators, incoming.Collaborators...)
	acc.BookingIDs = append(acc.BookingIDs, incoming.BookingIDs...)
	acc.OwnerBookingIDs = append(acc.OwnerBookingIDs, incoming.OwnerBookingIDs...)
	acc.StartDate = minDate(acc.StartDate, incoming.StartDate)
	acc.EndDate = maxDate(acc.EndDate, incoming.EndDate)
	acc.CreatedAt = minDate(acc.CreatedAt, incoming.CreatedAt)
	acc.Status = ResolveStatus(acc.Status, incoming.Status)

	if incoming.IsOwner {
		acc.IsOwner = true
		acc.IsCollaborator = false
		if incoming.OwnerID != nil {
			acc.OwnerID = incoming.OwnerID
		}
		if incoming.OwnerUsername != "" {
			acc.OwnerUsername = incoming.OwnerUsername
		}
	} else {
		if acc.OwnerID == nil {
			acc.OwnerID = incoming.OwnerID
		}
		if acc.OwnerUsername == "" {
			acc.OwnerUsername = incoming.OwnerUsername
		}
		// An owner view never turns back into a collaborator view.
		acc.IsCollaborator = !acc.IsOwner && (acc.IsCollaborator || incoming.IsCollaborator)
	}
	return acc
}

func unionDevices(acc, incoming []model.GroupDevice, incomingIsOwner bool) []model.GroupDevice {
	pos := make(map[int64]int, len(acc))
	for i, d := range acc {
		pos[d.DeviceID] = i
	}
	for _, d := range incoming {
		i, ok := pos[d.DeviceID]
		if !ok {
			pos[d.DeviceID] = len(acc)
			acc = append(acc, d)
			continue
		}
		cur := acc[i]
		cur.Dates = append(cur.Dates, d.Dates...)
		if (incomingIsOwner && d.DeviceName != "") || cur.DeviceName == "" {
			cur.DeviceName = d.DeviceName
		}
		if (incomingIsOwner && d.DeviceType != "") || cur.DeviceType == "" {
			cur.DeviceType = d.DeviceType
		}
		acc[i] = cur
	}
	return acc
}

// normalize sorts and deduplicates every list so that equal sessions compare
// equal, fills missing dates from the device dates and attaches the summary.
func normalize(g model.GroupedBooking) model.GroupedBooking {
	var allDates []string
	for i := range g.Devices {
		g.Devices[i].Dates = uniqueStrings(g.Devices[i].Dates)
		allDates = append(allDates, g.Devices[i].Dates...)
	}
	sort.Slice(g.Devices, func(i, j int) bool { return g.Devices[i].DeviceID < g.Devices[j].DeviceID })
	g.DeviceCount = len(g.Devices)

	for _, d := range allDates {
		g.StartDate = minDate(g.StartDate, d)
		g.EndDate = maxDate(g.EndDate, d)
	}

	g.Collaborators = uniqueFold(g.Collaborators)
	g.BookingIDs = uniqueInts(g.BookingIDs)
	g.OwnerBookingIDs = uniqueInts(g.OwnerBookingIDs)
	g.Status = model.NormalizeStatus(string(g.Status))
	if g.Status == "" {
		g.Status = model.StatusPending
	}

	summary := Summarize(g)
	g.Summary = &summary
	return g
}

func minDate(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case b < a:
		return b
	}
	return a
}

func maxDate(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case b > a:
		return b
	}
	return a
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// uniqueFold deduplicates usernames case-insensitively. Among spellings of the
// same name the byte-wise smallest is kept so input order does not matter.
func uniqueFold(in []string) []string {
	seen := make(map[string]int, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if i, ok := seen[k]; ok {
			if s < out[i] {
				out[i] = s
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func uniqueInts(in []int64) []int64 {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(in))
	out := make([]int64, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
