// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestHealth tests the composite health endpoint
func TestHealth(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, _ := setupTestHandler(t, db)

	t.Run("healthy", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := executeRequest(handler.Health, req)

		assertStatusCode(t, w.Code, http.StatusOK, "healthy")

		response := decodeAPIResponse(t, w, "healthy")
		assertResponseSuccess(t, response, "healthy")

		data := assertMapData(t, response, "healthy")
		if data["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", data["status"])
		}
		if data["version"] != "1.0.0" {
			t.Errorf("version = %v, want 1.0.0", data["version"])
		}
		if data["database_connected"] != true {
			t.Errorf("database_connected = %v, want true", data["database_connected"])
		}
		if data["score_cache_connected"] != true {
			t.Errorf("score_cache_connected = %v, want true", data["score_cache_connected"])
		}
		if _, ok := data["uptime_seconds"]; !ok {
			t.Error("Expected uptime_seconds in health data")
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		w := executeRequest(handler.Health, req)

		assertStatusCode(t, w.Code, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// TestHealthDegraded tests that a dead score cache degrades health
// without failing the endpoint
func TestHealthDegraded(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, _ := setupTestHandler(t, db)
	handler.scores = &failingScoreStore{err: errors.New("redis: connection refused")}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := executeRequest(handler.Health, req)

	// Degraded is still 200; orchestrators use /health/ready for gating.
	assertStatusCode(t, w.Code, http.StatusOK, "degraded")

	response := decodeAPIResponse(t, w, "degraded")
	data := assertMapData(t, response, "degraded")
	if data["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", data["status"])
	}
	if data["score_cache_connected"] != false {
		t.Errorf("score_cache_connected = %v, want false", data["score_cache_connected"])
	}
}

// TestHealthLive tests the liveness probe
func TestHealthLive(t *testing.T) {
	t.Parallel()

	db := setupTestDBForAPI(t)
	defer db.Close()

	handler, _ := setupTestHandler(t, db)

	t.Run("alive", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		w := executeRequest(handler.HealthLive, req)

		assertStatusCode(t, w.Code, http.StatusOK, "alive")

		response := decodeAPIResponse(t, w, "alive")
		data := assertMapData(t, response, "alive")
		if data["alive"] != true {
			t.Errorf("alive = %v, want true", data["alive"])
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/health/live", nil)
		w := executeRequest(handler.HealthLive, req)

		assertStatusCode(t, w.Code, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// TestHealthReady tests the readiness probe
func TestHealthReady(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		db := setupTestDBForAPI(t)
		defer db.Close()

		handler, _ := setupTestHandler(t, db)

		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w := executeRequest(handler.HealthReady, req)

		assertStatusCode(t, w.Code, http.StatusOK, "ready")

		response := decodeAPIResponse(t, w, "ready")
		data := assertMapData(t, response, "ready")
		if data["ready_to_serve"] != true {
			t.Errorf("ready_to_serve = %v, want true", data["ready_to_serve"])
		}
		if data["database_connected"] != true {
			t.Errorf("database_connected = %v, want true", data["database_connected"])
		}
	})

	t.Run("not ready when score cache is down", func(t *testing.T) {
		db := setupTestDBForAPI(t)
		defer db.Close()

		handler, _ := setupTestHandler(t, db)
		handler.scores = &failingScoreStore{err: errors.New("redis: connection refused")}

		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w := executeRequest(handler.HealthReady, req)

		assertStatusCode(t, w.Code, http.StatusServiceUnavailable, "not ready")

		response := decodeAPIResponse(t, w, "not ready")
		data := assertMapData(t, response, "not ready")
		if data["ready_to_serve"] != false {
			t.Errorf("ready_to_serve = %v, want false", data["ready_to_serve"])
		}
		if data["score_cache_connected"] != false {
			t.Errorf("score_cache_connected = %v, want false", data["score_cache_connected"])
		}
	})

	t.Run("not ready when database is closed", func(t *testing.T) {
		db := setupTestDBForAPI(t)

		handler, _ := setupTestHandler(t, db)
		db.Close()

		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w := executeRequest(handler.HealthReady, req)

		assertStatusCode(t, w.Code, http.StatusServiceUnavailable, "database closed")

		response := decodeAPIResponse(t, w, "database closed")
		data := assertMapData(t, response, "database closed")
		if data["database_connected"] != false {
			t.Errorf("database_connected = %v, want false", data["database_connected"])
		}
	})
}
