// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/cache"
	"github.com/tomtom215/venuepulse/internal/config"
	"github.com/tomtom215/venuepulse/internal/database"
	"github.com/tomtom215/venuepulse/internal/middleware"
	"github.com/tomtom215/venuepulse/internal/models"
	"github.com/tomtom215/venuepulse/internal/scorecache"
	"github.com/tomtom215/venuepulse/internal/scoring"
	"github.com/tomtom215/venuepulse/internal/signature"
)

// signedIngestRequest marshals the payload and signs the exact bytes
// that go on the wire.
func signedIngestRequest(t *testing.T, secret string, payload interface{}) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal ingest payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.Header, signature.Compute(secret, body))
	return req
}

func freshPayload(venueID uuid.UUID, delta int) models.IngestPayload {
	return models.IngestPayload{
		VenueID:    venueID.String(),
		Delta:      delta,
		OccurredAt: time.Now().UTC(),
		Nonce:      uuid.New().String(),
		Source:     "door-counter",
	}
}

// TestIngest tests the happy path for a signed occupancy event
func TestIngest(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, publisher := setupTestHandler(t, db)
	venue := insertTestVenue(t, db, "Paradiso", 1500)

	payload := freshPayload(venue.ID, 4)
	req := signedIngestRequest(t, venue.Secret, payload)
	w := executeRequest(handler.Ingest, req)

	assertStatusCode(t, w.Code, http.StatusAccepted, "ingest accepted")

	response := decodeAPIResponse(t, w, "ingest accepted")
	assertResponseSuccess(t, response, "ingest accepted")

	data := assertMapData(t, response, "ingest accepted")
	if data["event_id"] == "" {
		t.Error("Expected event_id in response data")
	}
	if data["received_at"] == nil {
		t.Error("Expected received_at in response data")
	}

	if publisher.count() != 1 {
		t.Fatalf("published events = %d, want 1", publisher.count())
	}

	event := publisher.last()
	if event.VenueID != venue.ID.String() {
		t.Errorf("event.VenueID = %s, want %s", event.VenueID, venue.ID)
	}
	if event.Delta != payload.Delta {
		t.Errorf("event.Delta = %d, want %d", event.Delta, payload.Delta)
	}
	if event.Nonce != payload.Nonce {
		t.Errorf("event.Nonce = %s, want %s", event.Nonce, payload.Nonce)
	}
	if !event.OccurredAt.Equal(payload.OccurredAt) {
		t.Errorf("event.OccurredAt = %v, want %v", event.OccurredAt, payload.OccurredAt)
	}
}

// TestIngestRejectsBadSignature tests that a tampered body is rejected
func TestIngestRejectsBadSignature(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, publisher := setupTestHandler(t, db)
	venue := insertTestVenue(t, db, "Melkweg", 900)

	tests := []struct {
		name      string
		signature string
	}{
		{name: "wrong secret", signature: signature.Compute("some-other-secret", []byte("x"))},
		{name: "empty header", signature: ""},
		{name: "garbage header", signature: "deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(freshPayload(venue.ID, 2))
			if err != nil {
				t.Fatalf("Failed to marshal payload: %v", err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader(body))
			req.Header.Set(signature.Header, tt.signature)
			w := executeRequest(handler.Ingest, req)

			assertStatusCode(t, w.Code, http.StatusUnauthorized, tt.name)

			response := decodeAPIResponse(t, w, tt.name)
			assertErrorCode(t, response, "AUTHENTICATION_ERROR", tt.name)
		})
	}

	if publisher.count() != 0 {
		t.Errorf("published events = %d, want 0", publisher.count())
	}
}

// TestIngestRejectsUnknownVenue tests that events for unregistered
// venues fail authentication without leaking venue existence
func TestIngestRejectsUnknownVenue(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, _ := setupTestHandler(t, db)

	payload := freshPayload(uuid.New(), 3)
	req := signedIngestRequest(t, "whatever-secret", payload)
	w := executeRequest(handler.Ingest, req)

	assertStatusCode(t, w.Code, http.StatusUnauthorized, "unknown venue")

	response := decodeAPIResponse(t, w, "unknown venue")
	assertErrorCode(t, response, "AUTHENTICATION_ERROR", "unknown venue")
	if response.Error.Message != "invalid signature" {
		t.Errorf("error message = %q, want the same message as a bad signature", response.Error.Message)
	}
}

// TestIngestRejectsStaleTimestamp tests replay window enforcement
func TestIngestRejectsStaleTimestamp(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, publisher := setupTestHandler(t, db)
	venue := insertTestVenue(t, db, "Bitterzoet", 400)

	tests := []struct {
		name       string
		occurredAt time.Time
	}{
		{name: "too old", occurredAt: time.Now().UTC().Add(-10 * time.Minute)},
		{name: "too far in the future", occurredAt: time.Now().UTC().Add(10 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := freshPayload(venue.ID, 1)
			payload.OccurredAt = tt.occurredAt

			req := signedIngestRequest(t, venue.Secret, payload)
			w := executeRequest(handler.Ingest, req)

			assertStatusCode(t, w.Code, http.StatusUnauthorized, tt.name)

			response := decodeAPIResponse(t, w, tt.name)
			assertErrorCode(t, response, "STALE_TIMESTAMP", tt.name)
		})
	}

	if publisher.count() != 0 {
		t.Errorf("published events = %d, want 0", publisher.count())
	}
}

// TestIngestValidation tests payload validation after authentication
func TestIngestValidation(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, _ := setupTestHandler(t, db)
	venue := insertTestVenue(t, db, "Paard", 1100)

	tests := []struct {
		name    string
		mutate  func(*models.IngestPayload)
		expCode string
	}{
		{
			name:    "zero delta",
			mutate:  func(p *models.IngestPayload) { p.Delta = 0 },
			expCode: "VALIDATION_ERROR",
		},
		{
			name:    "delta beyond hard cap",
			mutate:  func(p *models.IngestPayload) { p.Delta = 501 },
			expCode: "VALIDATION_ERROR",
		},
		{
			name:    "nonce too short",
			mutate:  func(p *models.IngestPayload) { p.Nonce = "short" },
			expCode: "VALIDATION_ERROR",
		},
		{
			name:    "source too long",
			mutate:  func(p *models.IngestPayload) { p.Source = strings.Repeat("s", 101) },
			expCode: "VALIDATION_ERROR",
		},
		{
			name:    "delta beyond configured bound",
			mutate:  func(p *models.IngestPayload) { p.Delta = 350 },
			expCode: "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := freshPayload(venue.ID, 2)
			tt.mutate(&payload)

			req := signedIngestRequest(t, venue.Secret, payload)
			w := executeRequest(handler.Ingest, req)

			assertStatusCode(t, w.Code, http.StatusBadRequest, tt.name)

			response := decodeAPIResponse(t, w, tt.name)
			assertErrorCode(t, response, tt.expCode, tt.name)
		})
	}
}

// TestIngestRejectsMalformedJSON tests the decode error path
func TestIngestRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, _ := setupTestHandler(t, db)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader("{not json"))
	req.Header.Set(signature.Header, "irrelevant")
	w := executeRequest(handler.Ingest, req)

	assertStatusCode(t, w.Code, http.StatusBadRequest, "malformed JSON")

	response := decodeAPIResponse(t, w, "malformed JSON")
	assertErrorCode(t, response, "VALIDATION_ERROR", "malformed JSON")
}

// TestIngestPayloadTooLarge tests the request body size limit
func TestIngestPayloadTooLarge(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, _ := setupTestHandler(t, db)
	handler.config.Ingest.MaxBodyBytes = 64

	body := bytes.Repeat([]byte("a"), 256)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader(body))
	req.Header.Set(signature.Header, "irrelevant")
	w := executeRequest(handler.Ingest, req)

	assertStatusCode(t, w.Code, http.StatusRequestEntityTooLarge, "payload too large")

	response := decodeAPIResponse(t, w, "payload too large")
	assertErrorCode(t, response, "PAYLOAD_TOO_LARGE", "payload too large")
}

// TestIngestBusUnavailable tests that publish failures surface as a
// retryable 503 instead of a dropped event
func TestIngestBusUnavailable(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, publisher := setupTestHandler(t, db)
	publisher.err = errors.New("nats: connection closed")
	venue := insertTestVenue(t, db, "Doornroosje", 1200)

	req := signedIngestRequest(t, venue.Secret, freshPayload(venue.ID, 5))
	w := executeRequest(handler.Ingest, req)

	assertStatusCode(t, w.Code, http.StatusServiceUnavailable, "bus unavailable")

	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want %q", got, "1")
	}

	response := decodeAPIResponse(t, w, "bus unavailable")
	assertErrorCode(t, response, "SERVICE_UNAVAILABLE", "bus unavailable")

	if response.Error.Details == nil || response.Error.Details["retryable"] != true {
		t.Error("Expected retryable detail on bus failure")
	}
}

// TestIngestRegistryUnavailable tests that a secret-store outage surfaces
// as a retryable 503, not a 401: producers never retry auth rejections,
// so mapping a database hiccup to 401 would silently drop signed events
func TestIngestRegistryUnavailable(t *testing.T) {
	db := setupTestDBForAPI(t)

	handler, publisher := setupTestHandler(t, db)

	// Closing the store makes every uncached secret lookup fail with a
	// non-NotFound error.
	db.Close()

	req := signedIngestRequest(t, "some-secret", freshPayload(uuid.New(), 5))
	w := executeRequest(handler.Ingest, req)

	assertStatusCode(t, w.Code, http.StatusServiceUnavailable, "registry unavailable")

	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want %q", got, "1")
	}

	response := decodeAPIResponse(t, w, "registry unavailable")
	assertErrorCode(t, response, "SERVICE_UNAVAILABLE", "registry unavailable")

	if response.Error.Details == nil || response.Error.Details["retryable"] != true {
		t.Error("Expected retryable detail on registry failure")
	}

	if publisher.count() != 0 {
		t.Errorf("published events = %d, want 0", publisher.count())
	}
}

// TestResolveVenueSecret tests the secret lookup cache
func TestResolveVenueSecret(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, _ := setupTestHandler(t, db)
	venue := insertTestVenue(t, db, "Tivoli", 2000)

	ctx := context.Background()

	if _, err := handler.resolveVenueSecret(ctx, "not-a-uuid"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Lookup for a malformed venue ID = %v, want ErrNotFound", err)
	}

	if _, err := handler.resolveVenueSecret(ctx, uuid.New().String()); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Lookup for an unregistered venue = %v, want ErrNotFound", err)
	}

	secret, err := handler.resolveVenueSecret(ctx, venue.ID.String())
	if err != nil {
		t.Fatalf("Lookup for a registered venue failed: %v", err)
	}
	if secret != venue.Secret {
		t.Errorf("secret = %q, want %q", secret, venue.Secret)
	}

	// Second lookup is served from the cache.
	if _, found := handler.secretCache.Get("venue_secret:" + venue.ID.String()); !found {
		t.Error("Expected secret to be cached after first lookup")
	}
}

// BenchmarkIngest benchmarks the full ingest path with a warm secret cache
func BenchmarkIngest(b *testing.B) {
	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
	}
	db, _ := database.New(cfg)
	defer db.Close()

	handler := &Handler{
		db:          db,
		config:      testConfig(),
		publisher:   &mockEventPublisher{},
		scores:      scorecache.NewMemoryStore(),
		engine:      scoring.NewEngine(15 * time.Minute),
		startTime:   time.Now(),
		secretCache: cache.New(time.Minute),
		perfMon:     middleware.NewPerformanceMonitor(1000),
	}

	venue := &models.Venue{
		ID:       uuid.New(),
		Name:     "Benchmark Hall",
		Capacity: 5000,
		Secret:   "benchmark-secret-0123456789",
	}
	if err := db.CreateVenue(context.Background(), venue); err != nil {
		b.Fatalf("Failed to create venue: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		body, _ := json.Marshal(freshPayload(venue.ID, 1))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader(body))
		req.Header.Set(signature.Header, signature.Compute(venue.Secret, body))
		w := httptest.NewRecorder()
		handler.Ingest(w, req)
		if w.Code != http.StatusAccepted {
			b.Fatalf("unexpected status %d", w.Code)
		}
	}
}
