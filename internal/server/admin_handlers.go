package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hulugan-ph/hulugan/internal/db/models"
	"github.com/hulugan-ph/hulugan/internal/middleware"
	"github.com/hulugan-ph/hulugan/internal/services/fund"
	"github.com/hulugan-ph/hulugan/internal/telemetry"
)

// CreateGroupRequest is the body for POST /api/admin/groups.
type CreateGroupRequest struct {
	Name         string  `json:"name"`
	WeeklyAmount float64 `json:"weekly_amount"`
	WeeksTotal   int     `json:"weeks_total"`
	PaidWeeks    int     `json:"paid_weeks"`
}

// SetPaidWeeksRequest is the body for POST /api/admin/groups/{id}/paid-weeks.
type SetPaidWeeksRequest struct {
	PaidWeeks int `json:"paid_weeks"`
}

// MutationResponse is a confirmation message plus the reloaded collection.
type MutationResponse struct {
	Message string `json:"message"`
	*fund.Snapshot
}

func recordMutation(m *telemetry.ServerMetrics, operation string, err error) {
	if m == nil {
		return
	}
	m.MutationCounter.WithLabelValues(operation, mutationOutcome(err)).Inc()
}

// HandleCreateGroup adds a group to the fund and responds with the reloaded
// collection.
func HandleCreateGroup(fundService *fund.Service, metrics *telemetry.ServerMetrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		var req CreateGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		group := &models.Group{
			Name:         req.Name,
			WeeklyAmount: req.WeeklyAmount,
			WeeksTotal:   req.WeeksTotal,
			PaidWeeks:    req.PaidWeeks,
		}

		snapshot, err := fundService.CreateGroup(r.Context(), principal, group)
		recordMutation(metrics, "create_group", err)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, MutationResponse{
			Message:  fmt.Sprintf("Group %s created", group.Name),
			Snapshot: snapshot,
		})
	}
}

// HandleSetPaidWeeks updates a group's paid-weeks counter and responds with
// the reloaded collection. Out-of-range values are rejected, never clamped.
func HandleSetPaidWeeks(fundService *fund.Service, metrics *telemetry.ServerMetrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		groupID := chi.URLParam(r, "id")

		var req SetPaidWeeksRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		snapshot, err := fundService.SetPaidWeeks(r.Context(), principal, groupID, req.PaidWeeks)
		recordMutation(metrics, "set_paid_weeks", err)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, MutationResponse{
			Message:  fmt.Sprintf("Paid weeks set to %d", req.PaidWeeks),
			Snapshot: snapshot,
		})
	}
}
