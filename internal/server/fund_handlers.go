package server

import (
	"log/slog"
	"net/http"

	"github.com/hulugan-ph/hulugan/internal/services/fund"
)

// HandleFundSnapshot returns the full collection with derived metrics,
// ordered by most recently updated. Readable without authentication.
func HandleFundSnapshot(fundService *fund.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := fundService.Snapshot(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}
