// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/models"
	"github.com/tomtom215/venuepulse/internal/reset"
)

// DLQResponse wraps a page of dead-letter entries with pagination info.
type DLQResponse struct {
	Entries    []models.DLQEntry     `json:"entries"`
	Pagination models.PaginationInfo `json:"pagination"`
}

// Reset wipes all occupancy state: live counters, score snapshots, the
// transaction ledger, the dedup window, and pending bus messages. Venue
// registrations and accounts survive. Used between simulation runs.
//
// The controller holds scoring paused while it works, so the call blocks
// for the duration of the wipe (bounded by the configured reset timeout).
//
// @Summary Reset all occupancy state
// @Description Truncates the transaction ledger, zeroes every venue's occupancy, clears the score cache and dedup window, and purges pending bus messages. Venues and accounts are untouched. One reset runs at a time.
// @Tags Admin
// @Produce json
// @Success 200 {object} models.APIResponse{data=reset.Result} "Reset completed"
// @Failure 401 {object} models.APIResponse "Missing or invalid token"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 409 {object} models.APIResponse "A reset is already in progress"
// @Failure 503 {object} models.APIResponse "Reset timed out or controller not ready"
// @Security BearerAuth
// @Router /admin/reset [post]
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if h.resetRunner == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "reset controller not ready", nil)
		return
	}

	logging.Ctx(r.Context()).Info().Msg("Reset requested")

	result, err := h.resetRunner.Reset(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, reset.ErrResetInFlight):
			respondError(w, http.StatusConflict, "RESET_IN_PROGRESS", "a reset is already in progress", nil)
		case errors.Is(err, context.DeadlineExceeded):
			w.Header().Set("Retry-After", "5")
			respondErrorDetails(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "reset timed out draining the pipeline", map[string]interface{}{
				"retryable": true,
			})
		default:
			// Reset failures leave state wiped up to the failed step;
			// rerunning converges. The step name travels to the admin
			// so the rerun decision is informed.
			respondErrorDetails(w, http.StatusInternalServerError, "INTERNAL_ERROR", "reset failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}

	logging.Ctx(r.Context()).Info().
		Int("venues_reset", result.VenuesReset).
		Int64("transactions_deleted", result.TransactionsDeleted).
		Int64("duration_ms", result.DurationMS).
		Msg("Reset completed")

	respondData(w, http.StatusOK, result, started)
}

// DLQ lists dead-letter entries, newest first. An entry lands here after
// the scoring worker exhausts its retry budget on a message; the original
// payload is preserved for manual inspection and replay.
//
// @Summary List dead-letter entries
// @Description Returns poisoned events that exhausted their scoring retries, newest first, with offset pagination.
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size (default from config, capped)"
// @Param offset query int false "Results to skip"
// @Success 200 {object} models.APIResponse{data=DLQResponse} "Entries retrieved successfully"
// @Failure 400 {object} models.APIResponse "Invalid parameters"
// @Failure 401 {object} models.APIResponse "Missing or invalid token"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 500 {object} models.APIResponse "Database error"
// @Security BearerAuth
// @Router /admin/dlq [get]
func (h *Handler) DLQ(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	req := DLQRequest{
		Limit:  getIntParam(r, "limit", h.config.API.DefaultPageSize),
		Offset: getIntParam(r, "offset", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	limit := clampPageSize(req.Limit, h.config.API.DefaultPageSize, h.config.API.MaxPageSize)

	entries, err := h.db.ListDLQEntries(r.Context(), limit, req.Offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list dead-letter entries", err)
		return
	}
	total, err := h.db.CountDLQEntries(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to count dead-letter entries", err)
		return
	}

	resp := DLQResponse{
		Entries: make([]models.DLQEntry, 0, len(entries)),
		Pagination: models.PaginationInfo{
			Limit:   limit,
			Offset:  req.Offset,
			Total:   total,
			HasMore: int64(req.Offset+len(entries)) < total,
		},
	}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, *entry)
	}

	respondData(w, http.StatusOK, resp, started)
}
