package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"labreserve/internal/conflict"
	"labreserve/internal/directory"
	"labreserve/internal/events"
	"labreserve/internal/model"
	"labreserve/internal/repoapi"
	"labreserve/internal/selection"
	"labreserve/internal/submit"
)

type mockSubmitter struct{ mock.Mock }

func (m *mockSubmitter) Submit(ctx context.Context, req submit.Request) submit.Result {
	args := m.Called(ctx, req)
	return args.Get(0).(submit.Result)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Validate(ctx context.Context, name string) (repoapi.UserCandidate, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(repoapi.UserCandidate), args.Error(1)
}

func uid(v int64) *int64 { return &v }

func newPlanner(sub Submitter, users UserValidator, bus *events.EventBus) *Planner {
	return New(Options{
		Actor:     conflict.Actor{UserID: uid(1), Username: "alice"},
		Devices:   directory.NewDevices([]model.Device{{ID: 1, Type: "Router", Name: "R1"}}, zerolog.Nop()),
		Submitter: sub,
		Users:     users,
		Bus:       bus,
		Logger:    zerolog.Nop(),
	})
}

var bobBooking = model.Booking{
	ID:            1,
	DeviceID:      1,
	StartTime:     "2024-01-01T10:00",
	EndTime:       "2024-01-01T11:00",
	Status:        model.StatusConfirmed,
	OwnerUsername: "bob",
}

func TestPlanner_ApplyRecomputesConflicts(t *testing.T) {
	p := newPlanner(new(mockSubmitter), nil, nil)
	p.SetBookings([]model.Booking{bobBooking})
	assert.Equal(t, 0, p.Conflicts().Len())

	p.Apply(func(s selection.Store) selection.Store {
		return s.ImportDeviceSelections([]int64{1}, []string{"2024-01-01", "2024-01-02"})
	})
	assert.Equal(t, []string{"1-2024-01-01"}, p.Conflicts().Strings())
	assert.Len(t, p.Explain()[selection.DayKey(1, "2024-01-01")], 1)

	p.Apply(func(s selection.Store) selection.Store { return s.RemoveDay(1, "2024-01-01") })
	assert.Equal(t, 0, p.Conflicts().Len())
	assert.Equal(t, 1, p.Store().Len())
}

func TestPlanner_Preview(t *testing.T) {
	p := newPlanner(new(mockSubmitter), nil, nil)
	p.Apply(func(s selection.Store) selection.Store {
		return s.AddDeviceDates(1, []string{"2024-01-01", "2024-01-02"}).ToggleDay(5, "2024-01-01")
	})
	ranges, skipped := p.Preview()
	require.Len(t, ranges, 1)
	assert.Equal(t, "2024-01-01T00:01:00", ranges[0].StartTime)
	assert.Equal(t, []int64{5}, skipped)
}

func TestPlanner_SubmitSuccessClearsAndPublishes(t *testing.T) {
	ctx := context.Background()
	sub := new(mockSubmitter)
	sub.On("Submit", ctx, mock.MatchedBy(func(req submit.Request) bool {
		return req.ActorID == 1 && len(req.Selections) == 1 &&
			req.DesiredStatus == model.StatusConflicting &&
			assert.ObjectsAreEqual([]string{"Carol"}, req.Collaborators)
	})).Return(submit.Result{Confirmed: 1, GroupedBookingID: "g-1"}).Once()

	users := new(mockUsers)
	users.On("Validate", ctx, "carol").Return(repoapi.UserCandidate{ID: 3, Username: "Carol"}, nil)

	bus := events.NewEventBus()
	var published []events.Event
	bus.Subscribe(events.BookingsChanged, func(e events.Event) error {
		published = append(published, e)
		return nil
	})

	p := newPlanner(sub, users, bus)
	p.Apply(func(s selection.Store) selection.Store { return s.ToggleDay(1, "2024-01-01") })
	name, err := p.AddCollaborator(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "Carol", name)

	res, err := p.Submit(ctx, SubmitOptions{Escalate: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Confirmed)

	assert.Equal(t, 0, p.Store().Len())
	assert.Empty(t, p.Collaborators())
	require.Len(t, published, 1)
	assert.Equal(t, "g-1", published[0].Payload)
	assert.False(t, p.InFlight())
	sub.AssertExpectations(t)
}

func TestPlanner_SubmitFailureKeepsSelections(t *testing.T) {
	sub := new(mockSubmitter)
	sub.On("Submit", mock.Anything, mock.Anything).Return(submit.Result{Conflicts: 1})

	bus := events.NewEventBus()
	bus.Subscribe(events.BookingsChanged, func(events.Event) error {
		t.Fatal("no invalidation expected")
		return nil
	})

	p := newPlanner(sub, nil, bus)
	p.Apply(func(s selection.Store) selection.Store { return s.ToggleDay(1, "2024-01-01") })

	res, err := p.Submit(context.Background(), SubmitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Conflicts)
	assert.Equal(t, 1, p.Store().Len())
}

func TestPlanner_SubmitRejectsConcurrentCall(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	sub := new(mockSubmitter)
	sub.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(submit.Result{Confirmed: 1}).Once()

	p := newPlanner(sub, nil, nil)
	p.Apply(func(s selection.Store) selection.Store { return s.ToggleDay(1, "2024-01-01") })

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), SubmitOptions{})
		done <- err
	}()

	<-entered
	assert.True(t, p.InFlight())
	_, err := p.Submit(context.Background(), SubmitOptions{})
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
	sub.AssertNumberOfCalls(t, "Submit", 1)
}

func TestPlanner_SubmitKeepsPicksAppliedDuringWrite(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	sub := new(mockSubmitter)
	sub.On("Submit", mock.Anything, mock.MatchedBy(func(req submit.Request) bool {
		return len(req.Selections) == 1
	})).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(submit.Result{Confirmed: 1}).Once()

	p := newPlanner(sub, nil, nil)
	p.Apply(func(s selection.Store) selection.Store { return s.ToggleDay(1, "2024-01-01") })

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), SubmitOptions{})
		done <- err
	}()

	<-entered
	p.Apply(func(s selection.Store) selection.Store { return s.ToggleHour(1, "2024-01-03", 9) })
	close(release)
	require.NoError(t, <-done)

	store := p.Store()
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.IsHourSelected(1, "2024-01-03", 9))
	assert.False(t, store.IsDaySelected(1, "2024-01-01"))
	sub.AssertExpectations(t)
}

func TestPlanner_AddCollaborator(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	users.On("Validate", ctx, "dave").Return(repoapi.UserCandidate{Username: "dave"}, nil)
	users.On("Validate", ctx, "DAVE").Return(repoapi.UserCandidate{Username: "dave"}, nil)
	users.On("Validate", ctx, "ghost").Return(repoapi.UserCandidate{}, directory.ErrUnknownUser)

	p := newPlanner(new(mockSubmitter), users, nil)

	_, err := p.AddCollaborator(ctx, "dave")
	require.NoError(t, err)
	_, err = p.AddCollaborator(ctx, "DAVE")
	require.NoError(t, err)
	assert.Equal(t, []string{"dave"}, p.Collaborators())

	_, err = p.AddCollaborator(ctx, "ghost")
	assert.True(t, errors.Is(err, directory.ErrUnknownUser))

	p.RemoveCollaborator("Dave")
	assert.Empty(t, p.Collaborators())
}

func TestWindow(t *testing.T) {
	_, _, ok := Window(selection.New())
	assert.False(t, ok)

	from, to, ok := Window(selection.New().
		ToggleDay(1, "2024-01-03").
		ToggleHour(2, "2024-01-01", 23).
		ToggleDay(1, "2024-01-05"))
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", from.Format(model.DateLayout))
	assert.Equal(t, "2024-01-06", to.Format(model.DateLayout))
}
