package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PrefetchConfig controls background warming of upcoming weeks.
type PrefetchConfig struct {
	// Weeks is how many weeks from the current one are kept warm.
	Weeks int
	// Interval is how often the window is refreshed.
	Interval time.Duration
}

// DefaultPrefetchConfig returns the default prefetch configuration.
func DefaultPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{Weeks: 4, Interval: 5 * time.Minute}
}

// Prefetcher periodically loads the upcoming weeks into the fetcher cache so
// calendar views open without waiting on the repository.
type Prefetcher struct {
	config  PrefetchConfig
	fetcher *Fetcher
	logger  zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewPrefetcher creates a prefetcher over fetcher.
func NewPrefetcher(config PrefetchConfig, fetcher *Fetcher, logger zerolog.Logger) *Prefetcher {
	def := DefaultPrefetchConfig()
	if config.Weeks <= 0 {
		config.Weeks = def.Weeks
	}
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	return &Prefetcher{
		config:  config,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "prefetch").Logger(),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start warms the window immediately and then on every interval until ctx is
// done or Stop is called. It blocks.
func (p *Prefetcher) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.logger.Info().Int("weeks", p.config.Weeks).Dur("interval", p.config.Interval).Msg("prefetch started")

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("prefetch stopped by context")
			return
		case <-p.stopCh:
			p.logger.Info().Msg("prefetch stopped")
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// Stop ends a running Start loop.
func (p *Prefetcher) Stop() {
	p.mu.Lock()
	if p.running {
		p.running = false
		close(p.stopCh)
	}
	p.mu.Unlock()
}

// RunOnce reloads the window starting at the current week and returns the
// resulting view. The in-memory week cache is dropped first; reads cached in
// Redis by the repository client are still served until their own TTL runs out.
func (p *Prefetcher) RunOnce(ctx context.Context) RangeView {
	p.fetcher.Invalidate()
	from := monday(p.now())
	to := from.AddDate(0, 0, 7*p.config.Weeks-1)

	view := p.fetcher.Range(ctx, from, to)
	if failed := view.Failed(); len(failed) > 0 {
		p.logger.Warn().Strs("weeks", failed).Msg("prefetch incomplete")
	} else {
		p.logger.Debug().Int("weeks", len(view.Weeks)).Msg("prefetch complete")
	}
	return view
}
