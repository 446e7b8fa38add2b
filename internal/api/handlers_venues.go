// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/database"
	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/models"
)

// VenueDeleted is the delete-venue response body.
type VenueDeleted struct {
	VenueID uuid.UUID `json:"venue_id"`
	Deleted bool      `json:"deleted"`
}

// ListVenues returns every registered venue. Signing secrets never
// serialize, so this listing is safe for any caller.
//
// @Summary List venues
// @Description Returns all registered venues without their signing secrets.
// @Tags Venues
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.Venue} "Venues retrieved successfully"
// @Failure 500 {object} models.APIResponse "Database error"
// @Router /venues [get]
func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	venues, err := h.db.ListVenues(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list venues", err)
		return
	}

	respondData(w, http.StatusOK, venues, started)
}

// GetVenue returns one venue by id.
//
// @Summary Get a venue
// @Description Returns a single venue without its signing secret.
// @Tags Venues
// @Produce json
// @Param venueID path string true "Venue UUID"
// @Success 200 {object} models.APIResponse{data=models.Venue} "Venue retrieved successfully"
// @Failure 400 {object} models.APIResponse "Invalid venue id"
// @Failure 404 {object} models.APIResponse "Venue not found"
// @Router /venues/{venueID} [get]
func (h *Handler) GetVenue(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	venueID, ok := h.venueIDFromPath(w, r)
	if !ok {
		return
	}

	venue, err := h.db.GetVenue(r.Context(), venueID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "venue not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load venue", err)
		return
	}

	respondData(w, http.StatusOK, venue, started)
}

// CreateVenue registers a new venue. When the request omits a signing
// secret the server generates one; either way the secret appears exactly
// once, in this response. There is no endpoint that reads it back.
//
// @Summary Register a venue
// @Description Creates a venue and returns it together with its signing secret. The secret is only ever returned here; store it with the venue's sensors.
// @Tags Venues
// @Accept json
// @Produce json
// @Param venue body models.CreateVenueRequest true "Venue registration"
// @Success 201 {object} models.APIResponse{data=models.VenueCreated} "Venue created"
// @Failure 400 {object} models.APIResponse "Validation failed"
// @Failure 401 {object} models.APIResponse "Missing or invalid token"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Security BearerAuth
// @Router /venues [post]
func (h *Handler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.CreateVenueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON payload", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	secret := req.Secret
	if secret == "" {
		generated, err := generateVenueSecret()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to generate signing secret", err)
			return
		}
		secret = generated
	}

	venue := &models.Venue{
		ID:        uuid.New(),
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Capacity:  req.Capacity,
		Secret:    secret,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.db.CreateVenue(r.Context(), venue); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to create venue", err)
		return
	}

	// Seed a zero snapshot so the venue shows on the map immediately
	// instead of appearing with its first event.
	snap := &models.VenueScore{
		VenueID:   venue.ID,
		Name:      venue.Name,
		Latitude:  venue.Latitude,
		Longitude: venue.Longitude,
		Capacity:  venue.Capacity,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.scores.Put(r.Context(), snap); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("venue_id", venue.ID.String()).Msg("Zero snapshot seed failed")
	}

	logging.Ctx(r.Context()).Info().
		Str("venue_id", venue.ID.String()).
		Str("name", sanitizeLogValue(venue.Name)).
		Int("capacity", venue.Capacity).
		Msg("Venue created")

	respondData(w, http.StatusCreated, models.VenueCreated{Venue: *venue, Secret: secret}, started)
}

// UpdateVenue changes a venue's metadata. The signing secret is not
// updatable; key rotation means registering a replacement venue.
//
// @Summary Update a venue
// @Description Updates a venue's name, coordinates, and capacity. The scoring worker's venue cache is invalidated so the next event sees the new capacity.
// @Tags Venues
// @Accept json
// @Produce json
// @Param venueID path string true "Venue UUID"
// @Param venue body models.UpdateVenueRequest true "Venue metadata"
// @Success 200 {object} models.APIResponse{data=models.Venue} "Venue updated"
// @Failure 400 {object} models.APIResponse "Validation failed"
// @Failure 401 {object} models.APIResponse "Missing or invalid token"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Venue not found"
// @Security BearerAuth
// @Router /venues/{venueID} [put]
func (h *Handler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	venueID, ok := h.venueIDFromPath(w, r)
	if !ok {
		return
	}

	var req models.UpdateVenueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON payload", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	venue, err := h.db.GetVenue(r.Context(), venueID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "venue not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load venue", err)
		return
	}

	venue.Name = req.Name
	venue.Latitude = req.Latitude
	venue.Longitude = req.Longitude
	venue.Capacity = req.Capacity

	if err := h.db.UpdateVenue(r.Context(), venue); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to update venue", err)
		return
	}

	if h.worker != nil {
		h.worker.InvalidateVenue(venueID)
	}
	h.refreshSnapshotMetadata(r, venue)

	logging.Ctx(r.Context()).Info().
		Str("venue_id", venue.ID.String()).
		Str("name", sanitizeLogValue(venue.Name)).
		Msg("Venue updated")

	respondData(w, http.StatusOK, venue, started)
}

// DeleteVenue removes a venue, its score snapshot, and its cached
// signing key. Ledger rows survive; history queries for a deleted venue
// still answer.
//
// @Summary Delete a venue
// @Description Removes a venue from the registry. Already-recorded transactions are retained.
// @Tags Venues
// @Produce json
// @Param venueID path string true "Venue UUID"
// @Success 200 {object} models.APIResponse{data=VenueDeleted} "Venue deleted"
// @Failure 400 {object} models.APIResponse "Invalid venue id"
// @Failure 401 {object} models.APIResponse "Missing or invalid token"
// @Failure 403 {object} models.APIResponse "Admin role required"
// @Failure 404 {object} models.APIResponse "Venue not found"
// @Security BearerAuth
// @Router /venues/{venueID} [delete]
func (h *Handler) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	venueID, ok := h.venueIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteVenue(r.Context(), venueID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "venue not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to delete venue", err)
		return
	}

	if err := h.scores.Delete(r.Context(), venueID); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("venue_id", venueID.String()).Msg("Snapshot delete failed")
	}
	if h.worker != nil {
		h.worker.InvalidateVenue(venueID)
	}
	h.invalidateVenueSecret(venueID)

	logging.Ctx(r.Context()).Info().Str("venue_id", venueID.String()).Msg("Venue deleted")

	respondData(w, http.StatusOK, VenueDeleted{VenueID: venueID, Deleted: true}, started)
}

// venueIDFromPath validates and parses the venueID path parameter,
// writing the error response itself when the id is unusable.
func (h *Handler) venueIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	req := VenueIDRequest{VenueID: chi.URLParam(r, "venueID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return uuid.Nil, false
	}
	venueID, err := uuid.Parse(req.VenueID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "venueID must be a UUID", nil)
		return uuid.Nil, false
	}
	return venueID, true
}

// refreshSnapshotMetadata rewrites the denormalized venue fields on an
// existing score snapshot after a registry update. Occupancy and event
// times are preserved; the score is re-aged against the new capacity.
func (h *Handler) refreshSnapshotMetadata(r *http.Request, venue *models.Venue) {
	snap, err := h.scores.Get(r.Context(), venue.ID)
	if err != nil {
		return
	}

	snap.Name = venue.Name
	snap.Latitude = venue.Latitude
	snap.Longitude = venue.Longitude
	snap.Capacity = venue.Capacity
	snap.Score = h.engine.SnapshotScore(snap, time.Now())
	snap.UpdatedAt = time.Now().UTC()

	if err := h.scores.Put(r.Context(), snap); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("venue_id", venue.ID.String()).Msg("Snapshot metadata refresh failed")
	}
}

// generateVenueSecret returns a 64-character hex signing key.
func generateVenueSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
