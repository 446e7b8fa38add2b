// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for compression, performance
monitoring, and Prometheus metrics integration. These components work alongside
the authentication middleware and the Chi middleware factories in internal/api
to form the complete stack for HTTP request processing.

Key Components:

  - Compression: Gzip compression for JSON responses
  - Performance Monitor: Request latency tracking with percentile calculations
  - Prometheus Metrics: HTTP request/response instrumentation

Usage Example - Compression:

	import "github.com/tomtom215/venuepulse/internal/middleware"

	// Wrap handler with gzip compression
	http.HandleFunc("/api/v1/scores",
	    middleware.Compression(handler),
	)

	// Accept-Encoding: gzip header is required; WebSocket upgrades
	// pass through untouched

Usage Example - Performance Monitoring:

	// Create performance monitor keeping the last 1000 requests
	perfMon := middleware.NewPerformanceMonitor(1000)

	// Wrap handler
	http.HandleFunc("/api/v1/scores",
	    perfMon.Middleware(handler).ServeHTTP,
	)

	// Get per-endpoint percentiles for the health report
	stats := perfMon.GetStats()

Usage Example - Prometheus Metrics:

	http.HandleFunc("/api/v1/venues",
	    middleware.PrometheusMetrics(handler),
	)

	// Records request count, duration histogram, and the
	// active-request gauge under the venuepulse_api_* metrics

Performance Characteristics:

  - Compression: 70-90% size reduction for JSON score listings
  - Compression overhead: ~1-2ms for typical responses
  - Metrics overhead: <0.1ms per request
  - Performance monitor: sliding window of the 1000 most recent requests

Thread Safety:

All middleware components are thread-safe:
  - Compression uses pooled per-request gzip writers
  - Performance monitor uses sync.RWMutex
  - Prometheus metrics use atomic operations

See Also:

  - internal/auth: Authentication middleware
  - internal/api: HTTP handlers and Chi middleware factories
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
