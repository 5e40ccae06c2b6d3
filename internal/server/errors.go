package server

import (
	"encoding/json"
	"errors"
	"hotelscore/internal/score"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorCode represents machine-readable error codes
type ErrorCode string

const (
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeUnknownItem       ErrorCode = "UNKNOWN_ITEM"
	ErrCodeMissingParameters ErrorCode = "MISSING_PARAMETERS"
	ErrCodeInvalidParameter  ErrorCode = "INVALID_PARAMETER"
	ErrCodeStoreUnavailable  ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error     string    `json:"error"`                // HTTP status text
	Message   string    `json:"message"`              // Human-readable description
	Code      ErrorCode `json:"code"`                 // Machine-readable error code
	RequestID string    `json:"request_id,omitempty"` // Request ID for debugging
}

// writeError writes a structured error response, taking the request ID from
// the chi middleware when available.
func writeError(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string) {
	resp := ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps an engine error onto a response.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, score.ErrUnknownItem):
		writeError(w, r, http.StatusBadRequest, ErrCodeUnknownItem, "Unknown rule item")
	case errors.Is(err, score.ErrMissingParameters):
		writeError(w, r, http.StatusBadRequest, ErrCodeMissingParameters, "Missing required parameters")
	case errors.Is(err, score.ErrInvalidValue):
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidParameter, err.Error())
	case errors.Is(err, score.ErrStoreUnavailable):
		slog.Error("Store unavailable", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "Store unavailable")
	default:
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal error")
	}
}

// writeJSON writes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Unable to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
