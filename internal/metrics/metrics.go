// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Ingestion gateway throughput and rejections
// - Event bus publish/consume flow (NATS JetStream)
// - Scoring worker state application
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
// - Cache efficiency and WebSocket fanout

var (
	// Ingest Gateway Metrics
	IngestEventsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_accepted_total",
			Help: "Total number of signed events accepted by the gateway",
		},
	)

	IngestEventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_rejected_total",
			Help: "Total number of events rejected by the gateway",
		},
		[]string{"reason"}, // "malformed", "bad_signature", "stale_timestamp", "unknown_venue", "validation", "too_large", "bus_unavailable"
	)

	IngestPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_publish_duration_seconds",
			Help:    "Duration of gateway-to-bus publish operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// Event Bus Metrics
	BusMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_messages_published_total",
			Help: "Total number of messages published to the event bus",
		},
	)

	BusMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_messages_consumed_total",
			Help: "Total number of messages consumed from the event bus",
		},
	)

	BusMessagesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_messages_processed_total",
			Help: "Total number of messages successfully processed",
		},
	)

	BusMessagesDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_deduplicated_total",
			Help: "Total number of messages skipped as duplicates",
		},
		[]string{"layer"}, // "stream" (JetStream msg-id window), "nonce" (application window)
	)

	BusMessagesParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_messages_parse_failed_total",
			Help: "Total number of messages that failed to parse",
		},
	)

	BusProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bus_processing_duration_seconds",
			Help:    "Duration of bus message processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BusPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_publish_errors_total",
			Help: "Total number of failed publish attempts",
		},
	)

	// Scoring Metrics
	ScoringEventsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_events_applied_total",
			Help: "Total number of occupancy deltas applied to venue state",
		},
	)

	ScoringNegativeClamps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_negative_clamps_total",
			Help: "Total number of events that drove raw occupancy below zero",
		},
	)

	ScoringVenueScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scoring_venue_score",
			Help: "Current 0-100 busyness score per venue",
		},
		[]string{"venue_id"},
	)

	ScoringVenueOccupancy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scoring_venue_occupancy",
			Help: "Current clamped occupancy per venue",
		},
		[]string{"venue_id"},
	)

	ScoringRefreshBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_refresh_broadcasts_total",
			Help: "Total number of periodic decay rebroadcast cycles",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	DBConnectionPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_connection_pool_size",
			Help: "Current number of database connections in use",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "score", "dedup"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry or LRU)",
		},
		[]string{"cache_type"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Dead Letter Queue Metrics
	DLQEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dlq_entries_total",
			Help: "Current number of entries in the dead letter queue",
		},
	)

	DLQMessagesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dlq_messages_added_total",
			Help: "Total number of messages dead-lettered",
		},
	)

	DLQOldestEntryAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dlq_oldest_entry_age_seconds",
			Help: "Age of the oldest entry in the dead letter queue in seconds",
		},
	)

	// Reset Metrics
	ResetOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reset_operations_total",
			Help: "Total number of admin reset operations",
		},
		[]string{"result"}, // "completed", "conflict", "timeout", "error"
	)

	ResetDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reset_duration_seconds",
			Help:    "Duration of reset operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Auth Metrics
	AuthLoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"decision"}, // "allow", "deny"
	)
)

// RecordIngestAccepted records an accepted gateway event.
func RecordIngestAccepted() {
	IngestEventsAccepted.Inc()
}

// RecordIngestRejected records a rejected gateway event by reason.
func RecordIngestRejected(reason string) {
	IngestEventsRejected.WithLabelValues(reason).Inc()
}

// RecordIngestPublish records the gateway-to-bus publish latency.
func RecordIngestPublish(duration time.Duration) {
	IngestPublishDuration.Observe(duration.Seconds())
}

// RecordBusPublish records a successful bus publish.
func RecordBusPublish() {
	BusMessagesPublished.Inc()
}

// RecordBusPublishError records a failed bus publish.
func RecordBusPublishError() {
	BusPublishErrors.Inc()
}

// RecordBusConsume records a message received from the bus.
func RecordBusConsume() {
	BusMessagesConsumed.Inc()
}

// RecordBusProcessed records a message fully processed by a worker.
func RecordBusProcessed() {
	BusMessagesProcessed.Inc()
}

// RecordBusDeduplicated records a message skipped as a duplicate.
// Layer is "stream" for JetStream msg-id suppression observed at the
// consumer, "nonce" for the application replay window.
func RecordBusDeduplicated(layer string) {
	BusMessagesDeduplicated.WithLabelValues(layer).Inc()
}

// RecordBusParseFailed records a message that could not be decoded.
func RecordBusParseFailed() {
	BusMessagesParseFailed.Inc()
}

// RecordBusProcessingDuration records message processing latency.
func RecordBusProcessingDuration(duration time.Duration) {
	BusProcessingDuration.Observe(duration.Seconds())
}

// RecordEventApplied records a delta applied to venue state. Clamped is
// true when the event drove the raw accumulator below zero.
func RecordEventApplied(clamped bool) {
	ScoringEventsApplied.Inc()
	if clamped {
		ScoringNegativeClamps.Inc()
	}
}

// SetVenueScore publishes the current score and occupancy gauges for a venue.
func SetVenueScore(venueID string, score int, occupancy int64) {
	ScoringVenueScore.WithLabelValues(venueID).Set(float64(score))
	ScoringVenueOccupancy.WithLabelValues(venueID).Set(float64(occupancy))
}

// ClearVenueGauges removes per-venue gauges, used after a reset so stale
// scores do not linger in scrapes.
func ClearVenueGauges() {
	ScoringVenueScore.Reset()
	ScoringVenueOccupancy.Reset()
}

// RecordRefreshBroadcast records one periodic decay rebroadcast cycle.
func RecordRefreshBroadcast() {
	ScoringRefreshBroadcasts.Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheHit records a cache hit for the given cache type.
func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss for the given cache type.
func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordDLQEntry records a message added to the dead letter queue.
func RecordDLQEntry() {
	DLQMessagesAdded.Inc()
}

// SetCircuitBreakerState updates the state gauge for a named breaker
// (0=closed, 1=half-open, 2=open).
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCircuitBreakerRequest records a request outcome through a breaker.
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordCircuitBreakerTransition records a state change for a named breaker.
func RecordCircuitBreakerTransition(name, fromState, toState string) {
	CircuitBreakerTransitions.WithLabelValues(name, fromState, toState).Inc()
}

// UpdateDLQGauges refreshes DLQ depth gauges from a store scan.
func UpdateDLQGauges(totalEntries int64, oldestEntryAge float64) {
	DLQEntriesTotal.Set(float64(totalEntries))
	DLQOldestEntryAge.Set(oldestEntryAge)
}

// RecordReset records a reset operation outcome and duration.
func RecordReset(result string, duration time.Duration) {
	ResetOperationsTotal.WithLabelValues(result).Inc()
	if result == "completed" {
		ResetDuration.Observe(duration.Seconds())
	}
}

// RecordLoginAttempt records a login attempt outcome.
func RecordLoginAttempt(success bool) {
	if success {
		AuthLoginAttempts.WithLabelValues("success").Inc()
	} else {
		AuthLoginAttempts.WithLabelValues("failure").Inc()
	}
}

// RecordAuthzDecision records an authorization decision outcome.
func RecordAuthzDecision(allowed bool) {
	if allowed {
		AuthzDecisions.WithLabelValues("allow").Inc()
	} else {
		AuthzDecisions.WithLabelValues("deny").Inc()
	}
}
