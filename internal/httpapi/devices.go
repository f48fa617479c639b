package httpapi

import (
	"net/http"

	"labreserve/internal/metrics"
)

// DeviceResponse is one device in the catalogue listing.
type DeviceResponse struct {
	ID    int64  `json:"id"`
	Type  string `json:"device_type"`
	Name  string `json:"device_name"`
	Label string `json:"label"`
}

// handleDevices lists the device directory.
// GET /api/devices
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("devices")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	list := s.devices.List()
	out := make([]DeviceResponse, 0, len(list))
	for _, d := range list {
		out = append(out, DeviceResponse{ID: d.ID, Type: d.Type, Name: d.Name, Label: d.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}
