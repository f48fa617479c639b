// Package httpapi exposes the device directory and conflict checks over HTTP
// for front ends that do not link the engine.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"labreserve/internal/directory"
	"labreserve/internal/fetch"
	"labreserve/internal/model"
)

// MaxAvailabilityDaysRange bounds one availability request.
const MaxAvailabilityDaysRange = 90

// BookingSource loads committed bookings for a date window.
type BookingSource interface {
	Range(ctx context.Context, from, to time.Time) fetch.RangeView
}

// Server serves the local API.
type Server struct {
	devices  *directory.Devices
	bookings BookingSource
	day      model.OperationalDay
	logger   zerolog.Logger
}

// NewServer creates a server over the given directory and booking source.
func NewServer(devices *directory.Devices, bookings BookingSource, day model.OperationalDay, logger zerolog.Logger) *Server {
	return &Server{
		devices:  devices,
		bookings: bookings,
		day:      day,
		logger:   logger.With().Str("component", "httpapi").Logger(),
	}
}

// Register mounts the API routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/api/availability", s.handleAvailability)
	mux.HandleFunc("/api/plan/check", s.handleCheck)
}

// Handler returns a mux serving only the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}
