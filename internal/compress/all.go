package compress

import (
	"sort"

	"labreserve/internal/model"
	"labreserve/internal/selection"
)

// DeviceLookup resolves a device id to its directory entry.
type DeviceLookup interface {
	Get(id int64) (model.Device, bool)
}

// CompressAll compresses every device present in selections. Device ids the
// lookup does not know are returned in skipped, ascending, and contribute no
// ranges.
func (c Compressor) CompressAll(devices DeviceLookup, selections []selection.Selection) (ranges []model.BookingRange, skipped []int64) {
	byDevice := make(map[int64][]selection.Selection)
	for _, sel := range selections {
		byDevice[sel.DeviceID] = append(byDevice[sel.DeviceID], sel)
	}

	ids := make([]int64, 0, len(byDevice))
	for id := range byDevice {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		device, ok := devices.Get(id)
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		device.ID = id
		ranges = append(ranges, c.Compress(device, byDevice[id])...)
	}
	return ranges, skipped
}
