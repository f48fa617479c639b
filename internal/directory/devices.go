// Package directory resolves device ids and usernames for the booking engine.
package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"labreserve/internal/model"
)

// DeviceLister fetches the device catalogue from the repository.
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]model.Device, error)
}

// Devices is an in-memory id to device map. It is safe for concurrent use and
// may be swapped wholesale when devices.yaml changes.
type Devices struct {
	mu      sync.RWMutex
	devices map[int64]model.Device
	logger  zerolog.Logger
}

// NewDevices creates a directory seeded with list.
func NewDevices(list []model.Device, logger zerolog.Logger) *Devices {
	d := &Devices{logger: logger.With().Str("component", "devices").Logger()}
	d.Replace(list)
	return d
}

// Get returns the device with id.
func (d *Devices) Get(id int64) (model.Device, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dev, ok := d.devices[id]
	return dev, ok
}

// List returns every device ordered by id.
func (d *Devices) List() []model.Device {
	d.mu.RLock()
	out := make([]model.Device, 0, len(d.devices))
	for _, dev := range d.devices {
		out = append(out, dev)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of known devices.
func (d *Devices) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.devices)
}

// Replace swaps the whole catalogue. Later duplicates of an id win.
func (d *Devices) Replace(list []model.Device) {
	next := make(map[int64]model.Device, len(list))
	for _, dev := range list {
		next[dev.ID] = dev
	}

	d.mu.Lock()
	d.devices = next
	d.mu.Unlock()

	d.logger.Debug().Int("devices", len(next)).Msg("device directory replaced")
}

// Refresh reloads the catalogue from the repository.
func (d *Devices) Refresh(ctx context.Context, lister DeviceLister) error {
	list, err := lister.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	d.Replace(list)
	return nil
}
