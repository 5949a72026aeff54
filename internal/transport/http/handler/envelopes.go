package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/farm-telemetry/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// httpError maps domain sentinels to status codes. Backend detail is logged,
// never returned to the caller.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrMalformedInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrMisconfigured):
		slog.Error("request failed: server misconfigured", "error", err)
		writeError(w, http.StatusInternalServerError, "server misconfigured")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
