package repoapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code   int
	Detail string
	Body   []byte
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Detail)
}

// Temporary reports whether the server failed rather than rejected the request.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500
}

func newStatusError(code int, body []byte) *StatusError {
	return &StatusError{Code: code, Detail: extractDetail(body), Body: body}
}

// extractDetail pulls a human message out of an error body. The repository
// answers with {"detail": ...}; other services use "message" or "error".
func extractDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var wrap map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrap); err != nil {
		return trimmed
	}
	for _, field := range []string{"detail", "message", "error"} {
		raw, ok := wrap[field]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}
	return trimmed
}
