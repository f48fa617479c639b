package config

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// DevicesChange describes one accepted devices.yaml revision.
type DevicesChange struct {
	Config  *DevicesConfig
	Added   []int64
	Removed []int64
}

// DevicesWatcher polls devices.yaml and hands each valid revision to onChange.
// A revision that fails to parse or validate is logged once and skipped; the
// previous catalogue stays in effect until the file changes again.
type DevicesWatcher struct {
	path     string
	interval time.Duration
	logger   zerolog.Logger
	onChange func(DevicesChange)

	lastMod     time.Time
	rejectedMod time.Time
	statFailing bool
	known       map[int64]struct{}
}

// NewDevicesWatcher builds a watcher. Empty path and non-positive interval
// fall back to configs/devices.yaml and 30s.
func NewDevicesWatcher(path string, interval time.Duration, logger zerolog.Logger, onChange func(DevicesChange)) *DevicesWatcher {
	if path == "" {
		path = "configs/devices.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &DevicesWatcher{
		path:     path,
		interval: interval,
		logger:   logger.With().Str("component", "devices_watch").Str("path", path).Logger(),
		onChange: onChange,
		known:    make(map[int64]struct{}),
	}
}

// Start loads the catalogue once, returning its error, then polls in the
// background until ctx is done.
func (w *DevicesWatcher) Start(ctx context.Context) error {
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	cfg, err := LoadDevicesConfig(w.path)
	if err != nil {
		return err
	}
	w.accept(cfg, info.ModTime())

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.poll()
			}
		}
	}()
	return nil
}

func (w *DevicesWatcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		if !w.statFailing {
			w.logger.Warn().Err(err).Msg("devices file unreadable, keeping current catalogue")
			w.statFailing = true
		}
		return
	}
	if w.statFailing {
		w.logger.Info().Msg("devices file readable again")
		w.statFailing = false
	}

	mod := info.ModTime()
	if !mod.After(w.lastMod) || mod.Equal(w.rejectedMod) {
		return
	}

	cfg, err := LoadDevicesConfig(w.path)
	if err != nil {
		w.rejectedMod = mod
		w.logger.Error().Err(err).Time("modified_at", mod).Msg("devices file rejected, keeping current catalogue")
		return
	}
	w.accept(cfg, mod)
}

func (w *DevicesWatcher) accept(cfg *DevicesConfig, mod time.Time) {
	next := make(map[int64]struct{}, len(cfg.Devices))
	change := DevicesChange{Config: cfg}
	for _, d := range cfg.Devices {
		next[d.ID] = struct{}{}
		if _, ok := w.known[d.ID]; !ok {
			change.Added = append(change.Added, d.ID)
		}
	}
	for id := range w.known {
		if _, ok := next[id]; !ok {
			change.Removed = append(change.Removed, id)
		}
	}
	sort.Slice(change.Added, func(i, j int) bool { return change.Added[i] < change.Added[j] })
	sort.Slice(change.Removed, func(i, j int) bool { return change.Removed[i] < change.Removed[j] })

	w.known = next
	w.lastMod = mod
	w.rejectedMod = time.Time{}

	if w.onChange != nil {
		w.onChange(change)
	}
}
