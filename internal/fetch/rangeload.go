package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"labreserve/internal/model"
)

// WeekResult is the outcome of one per-week fetch.
type WeekResult struct {
	Start    string
	Bookings []model.Booking
	Err      error
	Done     bool
}

// RangeView is an aggregate snapshot over several week fetches. Weeks that
// resolved are usable even while others are loading or failed.
type RangeView struct {
	Weeks   []WeekResult
	Loading bool
	Err     error
}

// Bookings concatenates the resolved weeks, dropping duplicate booking ids that
// span a week boundary.
func (v RangeView) Bookings() []model.Booking {
	seen := make(map[int64]struct{})
	var out []model.Booking
	for _, w := range v.Weeks {
		if !w.Done || w.Err != nil {
			continue
		}
		for _, b := range w.Bookings {
			if b.ID != 0 {
				if _, dup := seen[b.ID]; dup {
					continue
				}
				seen[b.ID] = struct{}{}
			}
			out = append(out, b)
		}
	}
	return out
}

// Failed lists the week starts whose fetch failed.
func (v RangeView) Failed() []string {
	var out []string
	for _, w := range v.Weeks {
		if w.Err != nil {
			out = append(out, w.Start)
		}
	}
	return out
}

// RangeLoad tracks an in-flight fan-out.
type RangeLoad struct {
	mu    sync.Mutex
	weeks []WeekResult
	done  chan struct{}
}

// View returns the current aggregate state without blocking.
func (l *RangeLoad) View() RangeView {
	l.mu.Lock()
	defer l.mu.Unlock()

	view := RangeView{Weeks: append([]WeekResult(nil), l.weeks...)}
	var errs []error
	for _, w := range l.weeks {
		if !w.Done {
			view.Loading = true
		}
		if w.Err != nil {
			errs = append(errs, w.Err)
		}
	}
	view.Err = errors.Join(errs...)
	return view
}

// Wait blocks until every week has resolved.
func (l *RangeLoad) Wait() RangeView {
	<-l.done
	return l.View()
}

// Done is closed once every week has resolved.
func (l *RangeLoad) Done() <-chan struct{} { return l.done }

// WeekStarts returns the Monday-aligned week starts covering [from, to].
func WeekStarts(from, to time.Time) []time.Time {
	from = monday(from)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	var out []time.Time
	for w := from; !w.After(to); w = w.AddDate(0, 0, 7) {
		out = append(out, w)
	}
	return out
}

func monday(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// Start launches one fetch per week covering [from, to] with bounded
// concurrency and returns immediately.
func (f *Fetcher) Start(ctx context.Context, from, to time.Time) *RangeLoad {
	starts := WeekStarts(from, to)
	load := &RangeLoad{
		weeks: make([]WeekResult, len(starts)),
		done:  make(chan struct{}),
	}
	for i, s := range starts {
		load.weeks[i].Start = s.Format(model.DateLayout)
	}

	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup
	for i, s := range starts {
		wg.Add(1)
		go func(i int, s time.Time) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				load.set(i, nil, ctx.Err())
				return
			}
			defer func() { <-sem }()

			bookings, err := f.Week(ctx, s)
			load.set(i, bookings, err)
		}(i, s)
	}

	go func() {
		wg.Wait()
		close(load.done)
	}()
	return load
}

// Range fetches [from, to] and waits for every week.
func (f *Fetcher) Range(ctx context.Context, from, to time.Time) RangeView {
	return f.Start(ctx, from, to).Wait()
}

func (l *RangeLoad) set(i int, bookings []model.Booking, err error) {
	l.mu.Lock()
	l.weeks[i].Bookings = bookings
	l.weeks[i].Err = err
	l.weeks[i].Done = true
	l.mu.Unlock()
}
