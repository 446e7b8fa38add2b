// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/scorecache"
)

// Scores returns the live score for every venue.
//
// Snapshots carry the score computed when their last event was applied.
// Between events that number goes stale, so each snapshot is re-aged
// through the decay curve before it leaves the handler. A venue that saw
// its last event twenty minutes ago reports a near-zero score even
// though no writer has touched its snapshot since.
//
// @Summary List live venue scores
// @Description Returns the current busyness score for every registered venue, recomputed with time decay at read time. Results are sorted by venue name.
// @Tags Scores
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.VenueScore} "Scores retrieved successfully"
// @Failure 503 {object} models.APIResponse "Score cache unreachable"
// @Router /scores [get]
func (h *Handler) Scores(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	snaps, err := h.scores.List(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Score cache list failed")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "score cache unreachable", nil)
		return
	}

	now := time.Now()
	for _, snap := range snaps {
		snap.Score = h.engine.SnapshotScore(snap, now)
	}

	respondData(w, http.StatusOK, snaps, started)
}

// VenueScore returns the live score for one venue.
//
// @Summary Get one venue's live score
// @Description Returns the busyness score for a single venue, recomputed with time decay at read time.
// @Tags Scores
// @Produce json
// @Param venueID path string true "Venue UUID"
// @Success 200 {object} models.APIResponse{data=models.VenueScore} "Score retrieved successfully"
// @Failure 400 {object} models.APIResponse "Invalid venue id"
// @Failure 404 {object} models.APIResponse "Venue has no score snapshot"
// @Failure 503 {object} models.APIResponse "Score cache unreachable"
// @Router /scores/{venueID} [get]
func (h *Handler) VenueScore(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	req := VenueIDRequest{VenueID: chi.URLParam(r, "venueID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	venueID, err := uuid.Parse(req.VenueID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "venueID must be a UUID", nil)
		return
	}

	snap, err := h.scores.Get(r.Context(), venueID)
	if err != nil {
		if errors.Is(err, scorecache.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "no score for this venue", nil)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Score cache get failed")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "score cache unreachable", nil)
		return
	}

	snap.Score = h.engine.SnapshotScore(snap, time.Now())
	respondData(w, http.StatusOK, snap, started)
}
