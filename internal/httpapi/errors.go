package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"lgprobe/internal/probe"
	"lgprobe/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// startErrorStatus maps a Start error to a status code and a rejection reason.
func startErrorStatus(err error) (int, string) {
	var he HTTPError
	switch {
	case probe.IsAlreadyRunning(err):
		return http.StatusConflict, "already_running"
	case probe.IsInvalidDescriptor(err):
		return http.StatusBadRequest, "invalid_descriptor"
	case errors.Is(err, probe.ErrClosed):
		return http.StatusServiceUnavailable, "closed"
	case errors.As(err, &he):
		return he.StatusCode(), "service"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
