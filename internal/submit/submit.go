// Package submit turns a selection set into one batched booking write.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"labreserve/internal/compress"
	"labreserve/internal/metrics"
	"labreserve/internal/model"
	"labreserve/internal/repoapi"
	"labreserve/internal/selection"
)

// BookingWriter is the write half of the repository client.
type BookingWriter interface {
	CreateBookings(ctx context.Context, req repoapi.CreateBookingsRequest) (*repoapi.CreateBookingsResponse, error)
}

// Request describes one submission.
type Request struct {
	ActorID    int64
	Selections []selection.Selection
	Directory  compress.DeviceLookup
	Message    string
	// Progress receives increasing percentages. Optional.
	Progress      func(int)
	Collaborators []string
	// DesiredStatus stamps every range; empty means PENDING.
	DesiredStatus model.Status
	// GroupedBookingID adds the ranges to an existing session.
	GroupedBookingID string
}

// Result is the outcome of a submission. At most one of Confirmed, Conflicts
// and Errors is non-empty.
type Result struct {
	Confirmed        int
	Conflicts        int
	Errors           []SubmitError
	Skipped          []int64
	GroupedBookingID string
	Ranges           []model.BookingRange
}

// OK reports whether the write was accepted.
func (r Result) OK() bool {
	return r.Confirmed > 0 && len(r.Errors) == 0
}

// Submitter resolves, compresses and writes selections.
type Submitter struct {
	repo       BookingWriter
	compressor compress.Compressor
	logger     zerolog.Logger
}

// NewSubmitter creates a submitter writing through repo. day controls how
// hour picks map onto wall-clock ranges.
func NewSubmitter(repo BookingWriter, day model.OperationalDay, logger zerolog.Logger) *Submitter {
	return &Submitter{
		repo:       repo,
		compressor: compress.Compressor{Day: day},
		logger:     logger.With().Str("component", "submit").Logger(),
	}
}

// Submit performs one batched write. It never retries: the repository write
// is not idempotent. It does not clear selections or caches either.
func (s *Submitter) Submit(ctx context.Context, req Request) Result {
	progress := req.Progress
	if progress == nil {
		progress = func(int) {}
	}

	if len(req.Selections) == 0 {
		return s.invalid("nothing selected")
	}
	if req.Directory == nil {
		return s.invalid("no device directory")
	}

	var (
		known   []selection.Selection
		skipped []int64
		seen    = make(map[int64]bool)
	)
	for _, sel := range req.Selections {
		if _, ok := req.Directory.Get(sel.DeviceID); ok {
			known = append(known, sel)
			continue
		}
		if !seen[sel.DeviceID] {
			seen[sel.DeviceID] = true
			skipped = append(skipped, sel.DeviceID)
			s.logger.Warn().Int64("device_id", sel.DeviceID).Msg("selection references unknown device, skipping")
		}
	}
	progress(10)

	ranges, _ := s.compressor.CompressAll(req.Directory, known)
	progress(40)

	if len(ranges) == 0 {
		res := s.invalid("no selection resolves to a known device")
		res.Skipped = skipped
		return res
	}

	status := model.NormalizeStatus(string(req.DesiredStatus))
	if status == "" {
		status = model.StatusPending
	}
	for i := range ranges {
		ranges[i].Status = status
	}

	result := Result{Skipped: skipped, Ranges: ranges, GroupedBookingID: req.GroupedBookingID}
	metrics.AddSubmittedRanges(len(ranges))

	resp, err := s.repo.CreateBookings(ctx, repoapi.CreateBookingsRequest{
		UserID:           req.ActorID,
		Message:          req.Message,
		Bookings:         ranges,
		Collaborators:    req.Collaborators,
		GroupedBookingID: req.GroupedBookingID,
	})
	progress(90)

	switch {
	case err == nil:
		result.Confirmed = len(ranges)
		if resp != nil && resp.GroupedBookingID != "" {
			result.GroupedBookingID = resp.GroupedBookingID
		}
		metrics.IncSubmit("confirmed")
		s.logger.Info().
			Int64("user_id", req.ActorID).
			Int("ranges", len(ranges)).
			Str("grouped_booking_id", result.GroupedBookingID).
			Msg("bookings submitted")
	case isConflict(err):
		result.Conflicts = len(ranges)
		metrics.IncSubmit("conflict")
		s.logger.Info().Int64("user_id", req.ActorID).Int("ranges", len(ranges)).Msg("submission rejected as conflicting")
	default:
		result.Errors = []SubmitError{transportError(err)}
		metrics.IncSubmit("error")
		s.logger.Error().Err(err).Int64("user_id", req.ActorID).Msg("submission failed")
	}

	progress(100)
	return result
}

func (s *Submitter) invalid(msg string) Result {
	metrics.IncSubmit("invalid")
	return Result{Errors: []SubmitError{{Kind: KindValidation, Message: msg}}}
}

var conflictMarkers = []string{"conflict", "already booked"}

// isConflict reports whether the repository refused the write because a
// device is taken. The repository does not always answer 409, so the detail
// text is checked too.
func isConflict(err error) bool {
	var se *repoapi.StatusError
	if !errors.As(err, &se) {
		return false
	}
	if se.Code == 409 {
		return true
	}
	text := strings.ToLower(se.Detail + " " + string(se.Body))
	for _, marker := range conflictMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func transportError(err error) SubmitError {
	var se *repoapi.StatusError
	if errors.As(err, &se) {
		msg := se.Detail
		if msg == "" {
			msg = fmt.Sprintf("http %d", se.Code)
		}
		return SubmitError{Kind: KindTransport, Message: msg, Code: se.Code}
	}
	return SubmitError{Kind: KindTransport, Message: err.Error()}
}
