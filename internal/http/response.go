package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// ErrorResponse is the JSON body of every handled error.
type ErrorResponse struct {
	Detail string            `json:"detail"`
	Errors []core.FieldError `json:"errors,omitempty"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse never includes the password hash.
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed writing JSON response", applog.FieldError, err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := core.AsValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: ve.Detail, Errors: ve.Fields})
		return
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, core.ErrConflict):
		writeDetail(w, http.StatusConflict, "Email already registered")
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}
