package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hulugan-ph/hulugan/internal/db/models"
	"github.com/hulugan-ph/hulugan/internal/repository"
	"github.com/hulugan-ph/hulugan/internal/services/fund"
)

// ErrorResponse is the JSON body returned for failed API calls.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing left to do but note it.
		slog.Default().Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusForError maps service and validation errors to HTTP status codes.
// Unknown errors are treated as internal failures.
func statusForError(err error) int {
	switch {
	case errors.Is(err, fund.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fund.ErrUpdateInFlight):
		return http.StatusConflict
	case errors.Is(err, models.ErrPaidWeeksOutOfRange),
		errors.Is(err, models.ErrGroupNameRequired),
		errors.Is(err, models.ErrWeeklyAmountNegative),
		errors.Is(err, models.ErrWeeksTotalInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError converts a service error into an HTTP response. Internal
// failures are logged with detail but reported to the client generically.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

// mutationOutcome labels a mutation result for metrics.
func mutationOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch statusForError(err) {
	case http.StatusForbidden:
		return "denied"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusConflict:
		return "conflict"
	default:
		return "error"
	}
}
