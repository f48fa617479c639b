// Package planner holds one actor's pending booking session: the current
// selection snapshot, the bookings visible around it and the collaborators
// who will share the result.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"labreserve/internal/compress"
	"labreserve/internal/conflict"
	"labreserve/internal/events"
	"labreserve/internal/metrics"
	"labreserve/internal/model"
	"labreserve/internal/repoapi"
	"labreserve/internal/selection"
	"labreserve/internal/submit"
)

// ErrSubmitInFlight is returned when Submit is called while another
// submission of the same session has not finished.
var ErrSubmitInFlight = errors.New("submission already in progress")

// Submitter performs the batched write.
type Submitter interface {
	Submit(ctx context.Context, req submit.Request) submit.Result
}

// UserValidator checks collaborator names.
type UserValidator interface {
	Validate(ctx context.Context, name string) (repoapi.UserCandidate, error)
}

// Options wires a Planner.
type Options struct {
	Actor     conflict.Actor
	Day       model.OperationalDay
	Devices   compress.DeviceLookup
	Submitter Submitter
	Users     UserValidator
	Bus       *events.EventBus
	Logger    zerolog.Logger
}

// SubmitOptions tunes one submission.
type SubmitOptions struct {
	Message  string
	Progress func(int)
	// Escalate stamps the ranges CONFLICTING so the repository records them
	// despite known overlaps.
	Escalate bool
	// GroupedBookingID adds the ranges to an existing session.
	GroupedBookingID string
}

// Planner is safe for concurrent use. Every selection change goes through
// Apply so conflicts are recomputed once per logical update.
type Planner struct {
	actor     conflict.Actor
	detector  conflict.Detector
	devices   compress.DeviceLookup
	submitter Submitter
	users     UserValidator
	bus       *events.EventBus
	logger    zerolog.Logger

	inFlight atomic.Bool

	mu            sync.RWMutex
	store         selection.Store
	bookings      []model.Booking
	conflicts     conflict.Set
	collaborators []string
}

// New creates an empty session.
func New(opts Options) *Planner {
	return &Planner{
		actor:     opts.Actor,
		detector:  conflict.Detector{Day: opts.Day},
		devices:   opts.Devices,
		submitter: opts.Submitter,
		users:     opts.Users,
		bus:       opts.Bus,
		logger:    opts.Logger.With().Str("component", "planner").Logger(),
		conflicts: conflict.Set{},
	}
}

// Store returns the current selection snapshot.
func (p *Planner) Store() selection.Store {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store
}

// Conflicts returns the conflict set for the current snapshot.
func (p *Planner) Conflicts() conflict.Set {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conflicts
}

// Apply replaces the snapshot with fn(current) and recomputes conflicts.
func (p *Planner) Apply(fn func(selection.Store) selection.Store) selection.Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store = fn(p.store)
	p.recompute()
	return p.store
}

// SetBookings replaces the committed bookings the session is checked against.
func (p *Planner) SetBookings(bookings []model.Booking) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bookings = append([]model.Booking(nil), bookings...)
	p.recompute()
}

// Explain lists the committed bookings behind each conflicting pick.
func (p *Planner) Explain() map[selection.Key][]model.Booking {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.detector.DetectDetailed(p.store.Selections(), p.bookings, p.actor)
}

func (p *Planner) recompute() {
	p.conflicts = p.detector.Detect(p.store.Selections(), p.bookings, p.actor)
	metrics.SetConflictKeys(p.conflicts.Len())
}

// Preview returns the ranges a submission would send, and the device ids that
// would be skipped.
func (p *Planner) Preview() ([]model.BookingRange, []int64) {
	store := p.Store()
	return compress.Compressor{Day: p.detector.Day}.CompressAll(p.devices, store.Selections())
}

// AddCollaborator validates name against the user directory and adds the
// directory's spelling of it. Adding a name twice is a no-op.
func (p *Planner) AddCollaborator(ctx context.Context, name string) (string, error) {
	if p.users == nil {
		return "", fmt.Errorf("add collaborator %q: no user directory", name)
	}
	user, err := p.users.Validate(ctx, name)
	if err != nil {
		return "", fmt.Errorf("add collaborator %q: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.collaborators {
		if strings.EqualFold(c, user.Username) {
			return c, nil
		}
	}
	p.collaborators = append(p.collaborators, user.Username)
	return user.Username, nil
}

// RemoveCollaborator drops name, case-insensitively.
func (p *Planner) RemoveCollaborator(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.collaborators[:0]
	for _, c := range p.collaborators {
		if !strings.EqualFold(c, name) {
			out = append(out, c)
		}
	}
	p.collaborators = out
}

// Collaborators returns the validated collaborator names.
func (p *Planner) Collaborators() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.collaborators...)
}

// Submit sends the current snapshot. Only one submission runs at a time; a
// second caller gets ErrSubmitInFlight. On success the submitted selections
// and collaborators are dropped and bookings.changed is published; picks
// applied while the write was in flight stay.
func (p *Planner) Submit(ctx context.Context, opts SubmitOptions) (submit.Result, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return submit.Result{}, ErrSubmitInFlight
	}
	defer p.inFlight.Store(false)

	p.mu.RLock()
	snapshot := p.store
	collaborators := append([]string(nil), p.collaborators...)
	p.mu.RUnlock()

	status := model.StatusPending
	if opts.Escalate {
		status = model.StatusConflicting
	}

	result := p.submitter.Submit(ctx, submit.Request{
		ActorID:          p.actorID(),
		Selections:       snapshot.Selections(),
		Directory:        p.devices,
		Message:          opts.Message,
		Progress:         opts.Progress,
		Collaborators:    collaborators,
		DesiredStatus:    status,
		GroupedBookingID: opts.GroupedBookingID,
	})
	if !result.OK() {
		return result, nil
	}

	p.mu.Lock()
	p.store = p.store.Without(snapshot)
	p.collaborators = withoutNames(p.collaborators, collaborators)
	p.recompute()
	p.mu.Unlock()

	if p.bus != nil {
		err := p.bus.Publish(events.Event{Type: events.BookingsChanged, Payload: result.GroupedBookingID})
		if err != nil {
			p.logger.Warn().Err(err).Msg("cache invalidation after submit failed")
		}
	}
	return result, nil
}

// InFlight reports whether a submission is running.
func (p *Planner) InFlight() bool {
	return p.inFlight.Load()
}

func withoutNames(current, sent []string) []string {
	if len(sent) == 0 {
		return current
	}
	drop := make(map[string]struct{}, len(sent))
	for _, n := range sent {
		drop[n] = struct{}{}
	}
	var kept []string
	for _, n := range current {
		if _, ok := drop[n]; !ok {
			kept = append(kept, n)
		}
	}
	return kept
}

func (p *Planner) actorID() int64 {
	if p.actor.UserID == nil {
		return 0
	}
	return *p.actor.UserID
}

// Window is the date span whose bookings can conflict with store. It reaches
// one day past the last pick because night-segment hours fall on the next
// calendar day.
func Window(store selection.Store) (from, to time.Time, ok bool) {
	first, last, ok := store.Span()
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	from, errFrom := model.ParseDate(first)
	to, errTo := model.ParseDate(last)
	if errFrom != nil || errTo != nil {
		return time.Time{}, time.Time{}, false
	}
	return from, to.AddDate(0, 0, 1), true
}
