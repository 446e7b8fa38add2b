// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/database"
	"github.com/tomtom215/venuepulse/internal/eventbus"
	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/metrics"
	"github.com/tomtom215/venuepulse/internal/models"
	"github.com/tomtom215/venuepulse/internal/signature"
)

// IngestAccepted is the 202 response body for an accepted event. The
// event id is server-assigned; sensors correlate through their nonce.
type IngestAccepted struct {
	EventID    string    `json:"event_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// Ingest accepts one signed occupancy delta and publishes it to the bus.
//
// The order of checks is deliberate: the signature is verified over the
// raw body before any field-level validation, so the gateway never leaks
// validation detail to an unauthenticated caller. Freshness comes next
// because a valid signature on a replayed body is still a replay.
//
// @Summary Ingest an occupancy delta
// @Description Accepts a single HMAC-signed occupancy change from a venue sensor and publishes it to the event bus. The raw request body is signed with the venue's key; the hex digest travels in the X-Signature header. Accepted events are durable in the bus before the 202 is written, but scoring is asynchronous.
// @Tags Ingest
// @Accept json
// @Produce json
// @Param X-Signature header string true "Hex HMAC-SHA256 digest of the raw request body"
// @Param payload body models.IngestPayload true "Occupancy delta"
// @Success 202 {object} models.APIResponse{data=IngestAccepted} "Event accepted for scoring"
// @Failure 400 {object} models.APIResponse "Malformed or invalid payload"
// @Failure 401 {object} models.APIResponse "Signature verification failed or timestamp outside the replay window"
// @Failure 413 {object} models.APIResponse "Body exceeds the configured size cap"
// @Failure 503 {object} models.APIResponse "Event bus or venue registry unavailable, retry later"
// @Router /ingest [post]
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Ingest.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.RecordIngestRejected("too_large")
			respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body exceeds the size limit", nil)
			return
		}
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unable to read request body", err)
		return
	}

	var payload models.IngestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.RecordIngestRejected("malformed")
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON payload", nil)
		return
	}

	// Signature first. The venue id is pulled from the unvalidated payload
	// solely to select the key; unknown and malformed ids collapse into
	// the same 401 as a bad signature so callers cannot enumerate which
	// venues exist. A registry outage is different: the event may be
	// perfectly signed, and producers only retry on 503.
	secret, err := h.resolveVenueSecret(r.Context(), payload.VenueID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			metrics.RecordIngestRejected("store_unavailable")
			w.Header().Set("Retry-After", "1")
			respondErrorDetails(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "venue registry unavailable, retry later", map[string]interface{}{
				"retryable": true,
			})
			return
		}
		metrics.RecordIngestRejected("unknown_venue")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid signature", nil)
		return
	}

	if err := signature.Verify(secret, body, r.Header.Get(signature.Header)); err != nil {
		metrics.RecordIngestRejected("bad_signature")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid signature", nil)
		return
	}

	if err := signature.CheckFreshness(payload.OccurredAt, time.Now(), h.config.Ingest.ReplayWindow); err != nil {
		metrics.RecordIngestRejected("stale_timestamp")
		respondError(w, http.StatusUnauthorized, "STALE_TIMESTAMP", "occurred_at is outside the replay window", nil)
		return
	}

	if apiErr := validateRequest(&payload); apiErr != nil {
		metrics.RecordIngestRejected("validation")
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	if maxDelta := h.config.Ingest.MaxDelta; maxDelta > 0 && (payload.Delta > maxDelta || payload.Delta < -maxDelta) {
		metrics.RecordIngestRejected("validation")
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "delta exceeds the configured bound", nil)
		return
	}

	event := eventbus.NewOccupancyEvent(payload.VenueID, payload.Delta)
	event.OccurredAt = payload.OccurredAt.UTC()
	event.Nonce = payload.Nonce
	event.Source = payload.Source

	publishStart := time.Now()
	if err := h.publisher.PublishEvent(r.Context(), event); err != nil {
		metrics.RecordIngestRejected("bus_unavailable")
		logging.Ctx(r.Context()).Error().
			Err(err).
			Str("venue_id", sanitizeLogValue(payload.VenueID)).
			Msg("Event publish failed")
		w.Header().Set("Retry-After", "1")
		respondErrorDetails(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "event bus unavailable, retry later", map[string]interface{}{
			"retryable": true,
		})
		return
	}
	metrics.RecordIngestPublish(time.Since(publishStart))
	metrics.RecordIngestAccepted()

	logging.Ctx(r.Context()).Debug().
		Str("event_id", event.EventID).
		Str("venue_id", event.VenueID).
		Int("delta", event.Delta).
		Msg("Event accepted")

	respondData(w, http.StatusAccepted, IngestAccepted{
		EventID:    event.EventID,
		ReceivedAt: event.ReceivedAt,
	}, started)
}

// resolveVenueSecret returns the signing key for a venue, serving repeat
// lookups from the TTL cache. The ingest path sees one lookup per venue
// per minute instead of one per event.
//
// A malformed or unregistered venue id returns database.ErrNotFound; any
// other error means the registry itself could not answer and the caller
// must not treat the event as unauthenticated.
func (h *Handler) resolveVenueSecret(ctx context.Context, venueID string) (string, error) {
	id, err := uuid.Parse(venueID)
	if err != nil {
		return "", database.ErrNotFound
	}

	cacheKey := "venue_secret:" + id.String()
	if cached, found := h.secretCache.Get(cacheKey); found {
		metrics.RecordCacheHit("venue_secret")
		if secret, ok := cached.(string); ok {
			return secret, nil
		}
	}
	metrics.RecordCacheMiss("venue_secret")

	secret, err := h.db.GetVenueSecret(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", err
		}
		logging.Error().Err(err).Msg("Venue secret lookup failed")
		return "", fmt.Errorf("venue secret lookup: %w", err)
	}

	h.secretCache.Set(cacheKey, secret)
	return secret, nil
}

// invalidateVenueSecret drops a venue's signing key from the TTL cache.
// Called by venue mutations so a deleted venue stops verifying promptly.
func (h *Handler) invalidateVenueSecret(id uuid.UUID) {
	h.secretCache.Delete("venue_secret:" + id.String())
}
