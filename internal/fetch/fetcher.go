// Package fetch loads committed bookings for the visible calendar window.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"labreserve/internal/metrics"
	"labreserve/internal/model"
)

// WeekReader is the slice of the repository client the fetcher needs.
type WeekReader interface {
	BookingsForWeek(ctx context.Context, weekStart time.Time) ([]model.Booking, error)
}

// DefaultCacheTTL is how long a resolved week is served from memory.
const DefaultCacheTTL = time.Minute

type cachedWeek struct {
	bookings []model.Booking
	loadedAt time.Time
}

// Fetcher retries week reads and caches the weeks it resolved for a TTL.
type Fetcher struct {
	reader      WeekReader
	policy      RetryPolicy
	concurrency int
	logger      zerolog.Logger
	sleep       func(context.Context, time.Duration) error
	now         func() time.Time

	mu    sync.RWMutex
	ttl   time.Duration
	cache map[string]cachedWeek
}

// NewFetcher builds a fetcher. concurrency bounds range fan-out; values below
// one default to 4.
func NewFetcher(reader WeekReader, policy RetryPolicy, concurrency int, logger zerolog.Logger) *Fetcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Fetcher{
		reader:      reader,
		policy:      policy.normalized(),
		concurrency: concurrency,
		logger:      logger.With().Str("component", "fetch").Logger(),
		sleep:       sleepContext,
		now:         time.Now,
		ttl:         DefaultCacheTTL,
		cache:       make(map[string]cachedWeek),
	}
}

// UseTTL sets how long resolved weeks stay fresh. Zero or negative disables
// the in-memory cache.
func (f *Fetcher) UseTTL(ttl time.Duration) {
	f.mu.Lock()
	f.ttl = ttl
	f.cache = make(map[string]cachedWeek)
	f.mu.Unlock()
}

// Week loads the 7-day window starting at weekStart, retrying transient
// failures with linear backoff.
func (f *Fetcher) Week(ctx context.Context, weekStart time.Time) ([]model.Booking, error) {
	key := weekStart.Format(model.DateLayout)
	if cached, ok := f.Cached(weekStart); ok {
		return cached, nil
	}

	var lastErr error
	for attempt := 0; attempt < f.policy.Attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * f.policy.Backoff
			f.logger.Debug().Str("week", key).Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying week fetch")
			if err := f.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		bookings, err := f.reader.BookingsForWeek(ctx, weekStart)
		if err == nil {
			metrics.IncFetchAttempt("ok")
			f.store(key, bookings)
			return bookings, nil
		}
		lastErr = err

		if ctx.Err() != nil || !Retryable(err) {
			metrics.IncFetchAttempt("terminal")
			f.logger.Warn().Err(err).Str("week", key).Msg("week fetch failed")
			return nil, fmt.Errorf("fetch week %s: %w", key, err)
		}
		metrics.IncFetchAttempt("retry")
	}

	f.logger.Warn().Err(lastErr).Str("week", key).Int("attempts", f.policy.Attempts).Msg("week fetch exhausted retries")
	return nil, fmt.Errorf("fetch week %s after %d attempts: %w", key, f.policy.Attempts, lastErr)
}

// Cached returns a previously resolved week that has not expired.
func (f *Fetcher) Cached(weekStart time.Time) ([]model.Booking, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.cache[weekStart.Format(model.DateLayout)]
	if !ok || f.now().Sub(entry.loadedAt) >= f.ttl {
		return nil, false
	}
	return entry.bookings, true
}

// Invalidate forgets every resolved week.
func (f *Fetcher) Invalidate() {
	f.mu.Lock()
	f.cache = make(map[string]cachedWeek)
	f.mu.Unlock()
}

func (f *Fetcher) store(key string, bookings []model.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ttl <= 0 {
		return
	}
	f.cache[key] = cachedWeek{bookings: bookings, loadedAt: f.now()}
}
