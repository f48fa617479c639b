package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"labreserve/internal/model"
	"labreserve/internal/repoapi"
	"labreserve/internal/selection"
)

type mockWriter struct{ mock.Mock }

func (m *mockWriter) CreateBookings(ctx context.Context, req repoapi.CreateBookingsRequest) (*repoapi.CreateBookingsResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*repoapi.CreateBookingsResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type devices map[int64]model.Device

func (d devices) Get(id int64) (model.Device, bool) {
	dev, ok := d[id]
	return dev, ok
}

var directory = devices{
	1: {ID: 1, Type: "Router", Name: "R1"},
	2: {ID: 2, Type: "Switch", Name: "SW"},
}

// threeRanges yields three ranges: one multi-day run for device 1, a separate
// day for device 1 and one day for device 2.
func threeRanges() []selection.Selection {
	return selection.New().
		ToggleDay(1, "2024-01-01").
		ToggleDay(1, "2024-01-02").
		ToggleDay(1, "2024-01-05").
		ToggleDay(2, "2024-01-03").
		Selections()
}

func TestSubmit_Success(t *testing.T) {
	ctx := context.Background()
	writer := new(mockWriter)
	writer.On("CreateBookings", ctx, mock.MatchedBy(func(req repoapi.CreateBookingsRequest) bool {
		return req.UserID == 7 && len(req.Bookings) == 3 && req.Bookings[0].Status == model.StatusPending &&
			req.Message == "lab" && len(req.Collaborators) == 1
	})).Return(&repoapi.CreateBookingsResponse{Count: 3, GroupedBookingID: "g-9"}, nil).Once()

	var steps []int
	res := NewSubmitter(writer, model.OperationalDay{}, zerolog.Nop()).Submit(ctx, Request{
		ActorID:       7,
		Selections:    threeRanges(),
		Directory:     directory,
		Message:       "lab",
		Collaborators: []string{"carol"},
		Progress:      func(p int) { steps = append(steps, p) },
	})

	assert.Equal(t, 3, res.Confirmed)
	assert.Zero(t, res.Conflicts)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "g-9", res.GroupedBookingID)
	assert.True(t, res.OK())
	assert.Equal(t, []int{10, 40, 90, 100}, steps)
	writer.AssertExpectations(t)
}

func TestSubmit_ConflictFromServer(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bookings", r.URL.Path)

		var body repoapi.CreateBookingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Bookings, 3)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"device already booked"}`))
	}))
	defer srv.Close()

	client := repoapi.NewClient(srv.URL, "k", 5*time.Second)
	res := NewSubmitter(client, model.OperationalDay{}, zerolog.Nop()).Submit(context.Background(), Request{
		ActorID:    1,
		Selections: threeRanges(),
		Directory:  directory,
	})

	assert.Equal(t, 0, res.Confirmed)
	assert.Equal(t, 3, res.Conflicts)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, calls, "writes are never retried")
}

func TestSubmit_ErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantConflict bool
		wantMessage  string
	}{
		{"409 without detail", &repoapi.StatusError{Code: 409}, true, ""},
		{"400 mentioning conflict", &repoapi.StatusError{Code: 400, Detail: "Booking CONFLICT on device 3"}, true, ""},
		{"400 already booked in body", &repoapi.StatusError{Code: 400, Body: []byte(`{"error":"Already Booked"}`)}, true, ""},
		{"422 passthrough", &repoapi.StatusError{Code: 422, Detail: "start_time must be before end_time"}, false, "start_time must be before end_time"},
		{"500 without detail", &repoapi.StatusError{Code: 500}, false, "http 500"},
		{"network", errors.New("dial tcp: connection refused"), false, "dial tcp: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := new(mockWriter)
			writer.On("CreateBookings", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			res := NewSubmitter(writer, model.OperationalDay{}, zerolog.Nop()).Submit(context.Background(), Request{
				ActorID:    1,
				Selections: threeRanges(),
				Directory:  directory,
			})

			assert.Zero(t, res.Confirmed)
			if tt.wantConflict {
				assert.Equal(t, 3, res.Conflicts)
				assert.Empty(t, res.Errors)
				return
			}
			assert.Zero(t, res.Conflicts)
			require.Len(t, res.Errors, 1)
			assert.Equal(t, KindTransport, res.Errors[0].Kind)
			assert.Equal(t, tt.wantMessage, res.Errors[0].Message)
			writer.AssertNumberOfCalls(t, "CreateBookings", 1)
		})
	}
}

func TestSubmit_ValidationMakesNoCall(t *testing.T) {
	writer := new(mockWriter)
	sub := NewSubmitter(writer, model.OperationalDay{}, zerolog.Nop())

	res := sub.Submit(context.Background(), Request{ActorID: 1, Directory: directory})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindValidation, res.Errors[0].Kind)

	res = sub.Submit(context.Background(), Request{
		ActorID:    1,
		Selections: selection.New().ToggleDay(42, "2024-01-01").Selections(),
		Directory:  directory,
	})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindValidation, res.Errors[0].Kind)
	assert.Equal(t, []int64{42}, res.Skipped)

	writer.AssertNotCalled(t, "CreateBookings", mock.Anything, mock.Anything)
}

func TestSubmit_UnknownDevicesSkippedAndStatusStamped(t *testing.T) {
	writer := new(mockWriter)
	var sent repoapi.CreateBookingsRequest
	writer.On("CreateBookings", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(repoapi.CreateBookingsRequest) }).
		Return(&repoapi.CreateBookingsResponse{}, nil)

	picks := selection.New().
		ToggleDay(1, "2024-01-01").
		ToggleDay(99, "2024-01-01").
		ToggleHour(2, "2024-01-02", 9).
		Selections()

	res := NewSubmitter(writer, model.OperationalDay{}, zerolog.Nop()).Submit(context.Background(), Request{
		ActorID:          1,
		Selections:       picks,
		Directory:        directory,
		DesiredStatus:    "conflicting",
		GroupedBookingID: "g-1",
	})

	assert.Equal(t, 2, res.Confirmed)
	assert.Equal(t, []int64{99}, res.Skipped)
	assert.Equal(t, "g-1", res.GroupedBookingID)
	require.Len(t, sent.Bookings, 2)
	for _, b := range sent.Bookings {
		assert.Equal(t, model.StatusConflicting, b.Status)
	}
	assert.Equal(t, "g-1", sent.GroupedBookingID)
	assert.Equal(t, "2024-01-02T09:00:00", sent.Bookings[1].StartTime)
	assert.Equal(t, "2024-01-02T10:00:00", sent.Bookings[1].EndTime)
}
