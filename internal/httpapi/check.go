package httpapi

import (
	"net/http"

	"labreserve/internal/compress"
	"labreserve/internal/conflict"
	"labreserve/internal/metrics"
	"labreserve/internal/model"
	"labreserve/internal/planner"
	"labreserve/internal/selection"
)

// CheckRequest is the body of POST /api/plan/check.
type CheckRequest struct {
	UserID     *int64                `json:"user_id,omitempty"`
	Username   string                `json:"username,omitempty"`
	Selections []selection.Selection `json:"selections"`
}

// CheckResponse previews what a submission of the picks would send.
type CheckResponse struct {
	Conflicts       []string             `json:"conflicts"`
	Ranges          []model.BookingRange `json:"ranges"`
	Skipped         []int64              `json:"skipped,omitempty"`
	IncompleteWeeks []string             `json:"incomplete_weeks,omitempty"`
}

// handleCheck runs conflict detection and compression for a pending session
// without writing anything.
// POST /api/plan/check
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("plan_check")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CheckRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	store := selection.FromSelections(req.Selections)
	from, to, ok := planner.Window(store)
	if !ok {
		writeError(w, http.StatusBadRequest, "no valid selections")
		return
	}

	picks := store.Selections()
	view := s.bookings.Range(r.Context(), from, to)
	actor := conflict.Actor{UserID: req.UserID, Username: req.Username}

	resp := CheckResponse{
		Conflicts:       conflict.Detector{Day: s.day}.Detect(picks, view.Bookings(), actor).Strings(),
		IncompleteWeeks: view.Failed(),
	}
	resp.Ranges, resp.Skipped = compress.Compressor{Day: s.day}.CompressAll(s.devices, picks)
	if resp.Ranges == nil {
		resp.Ranges = []model.BookingRange{}
	}
	if resp.Conflicts == nil {
		resp.Conflicts = []string{}
	}

	s.logger.Debug().Int("picks", len(picks)).Int("conflicts", len(resp.Conflicts)).Msg("plan checked")
	writeJSON(w, http.StatusOK, resp)
}
