// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the full ingestion-to-score pipeline using the
Prometheus client library. Metrics are registered with promauto at package
load and exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8000/metrics

# Available Metrics

Ingest Gateway:
  - ingest_events_accepted_total: Signed events accepted (counter)
  - ingest_events_rejected_total: Rejections by reason (counter)
    Labels: reason (bad_signature, stale_timestamp, unknown_venue, validation, too_large)
  - ingest_publish_duration_seconds: Gateway-to-bus publish latency (histogram)

Event Bus:
  - bus_messages_published_total / consumed_total / processed_total (counters)
  - bus_messages_deduplicated_total: Duplicates skipped (counter)
    Labels: layer (stream, nonce)
  - bus_messages_parse_failed_total: Undecodable payloads (counter)
  - bus_processing_duration_seconds: Worker handler latency (histogram)

Scoring:
  - scoring_events_applied_total: Deltas applied to venue state (counter)
  - scoring_negative_clamps_total: Events clamped at zero occupancy (counter)
  - scoring_venue_score / scoring_venue_occupancy: Live per-venue gauges
    Labels: venue_id
  - scoring_refresh_broadcasts_total: Periodic decay rebroadcast cycles (counter)

Database:
  - duckdb_query_duration_seconds: Query latency (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)

HTTP API:
  - api_requests_total: Requests by method/endpoint/status (counter)
  - api_request_duration_seconds: Request latency (histogram)
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: 429 rejections (counter)

Plus cache hit/miss counters, WebSocket connection gauges, circuit breaker
state, dead letter queue depth, and reset operation outcomes.

# Usage Pattern

Record helpers wrap the raw collectors so call sites stay one line:

	start := time.Now()
	err := db.InsertTransaction(ctx, txn)
	metrics.RecordDBQuery("INSERT", "transactions", time.Since(start), err)

All collectors are safe for concurrent use.
*/
package metrics
