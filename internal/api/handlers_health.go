// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/venuepulse/internal/eventbus"
	"github.com/tomtom215/venuepulse/internal/middleware"
	"github.com/tomtom215/venuepulse/internal/models"
)

// HealthStatus is the composite health report for /health.
type HealthStatus struct {
	Status              string                     `json:"status"`
	Version             string                     `json:"version"`
	DatabaseConnected   bool                       `json:"database_connected"`
	ScoreCacheConnected bool                       `json:"score_cache_connected"`
	Bus                 *eventbus.OverallHealth    `json:"bus,omitempty"`
	Pipeline            *PipelineStats             `json:"pipeline,omitempty"`
	Endpoints           []middleware.EndpointStats `json:"endpoints,omitempty"`
	UptimeSeconds       float64                    `json:"uptime_seconds"`
}

// PipelineStats summarizes the scoring worker's counters for /health.
type PipelineStats struct {
	EventsReceived    int64      `json:"events_received"`
	EventsProcessed   int64      `json:"events_processed"`
	DuplicatesSkipped int64      `json:"duplicates_skipped"`
	ParseErrors       int64      `json:"parse_errors"`
	UnknownVenues     int64      `json:"unknown_venues"`
	ResetDrops        int64      `json:"reset_drops"`
	LastEventAt       *time.Time `json:"last_event_at,omitempty"`
}

// Health handles health check requests
//
// @Summary Get system health status
// @Description Returns comprehensive health status including database connectivity, score cache connectivity, event bus component health, scoring pipeline counters, and uptime
// @Tags Core
// @Accept json
// @Produce json
// @Success 200 {object} models.APIResponse{data=HealthStatus} "Health status retrieved successfully"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	ctx := r.Context()

	dbConnected := h.db != nil && h.db.Ping(ctx) == nil
	cacheConnected := h.scores != nil && h.scores.Ping(ctx) == nil

	status := "healthy"
	if !dbConnected || !cacheConnected {
		status = "degraded"
	}

	health := HealthStatus{
		Status:              status,
		Version:             "1.0.0",
		DatabaseConnected:   dbConnected,
		ScoreCacheConnected: cacheConnected,
		UptimeSeconds:       time.Since(h.startTime).Seconds(),
	}

	if h.health != nil {
		bus := h.health.CheckAll(ctx)
		health.Bus = &bus
		if !bus.Healthy {
			health.Status = "degraded"
		}
	}

	if h.worker != nil {
		stats := h.worker.Stats()
		pipeline := &PipelineStats{
			EventsReceived:    stats.MessagesReceived,
			EventsProcessed:   stats.MessagesProcessed,
			DuplicatesSkipped: stats.DuplicatesSkipped,
			ParseErrors:       stats.ParseErrors,
			UnknownVenues:     stats.UnknownVenues,
			ResetDrops:        stats.ResetDrops,
		}
		if !stats.LastMessageTime.IsZero() {
			t := stats.LastMessageTime
			pipeline.LastEventAt = &t
		}
		health.Pipeline = pipeline
	}

	if h.perfMon != nil {
		health.Endpoints = h.perfMon.GetStats()
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
//
// @Summary Kubernetes liveness probe
// @Description Returns 200 OK if the process is alive, regardless of external dependencies. Used for Kubernetes liveness probes.
// @Tags Core
// @Accept json
// @Produce json
// @Success 200 {object} models.APIResponse "Service is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only if the service is ready to handle traffic
//
// @Summary Kubernetes readiness probe
// @Description Returns 200 OK only if the service is ready to handle traffic (database, score cache, and event bus are all reachable). Returns 503 if not ready.
// @Tags Core
// @Accept json
// @Produce json
// @Success 200 {object} models.APIResponse "Service is ready"
// @Failure 503 {object} models.APIResponse "Service is not ready"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	ctx := r.Context()

	dbConnected := h.db != nil && h.db.Ping(ctx) == nil
	cacheConnected := h.scores != nil && h.scores.Ping(ctx) == nil

	busHealthy := true
	if h.health != nil {
		busHealthy = h.health.CheckAll(ctx).Healthy
	}

	ready := dbConnected && cacheConnected && busHealthy

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"database_connected":    dbConnected,
			"score_cache_connected": cacheConnected,
			"bus_healthy":           busHealthy,
			"ready_to_serve":        ready,
			"uptime":                time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
