// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package api provides the HTTP surface for VenuePulse.

It implements the ingest gateway, the live score read model, venue and
account management, and the operational endpoints, all behind a Chi
router with per-group rate limits.

Key Components:

  - Router: Chi route configuration and middleware stack integration
  - Handler: Request handlers for all endpoints
  - Response formatting: Standardized JSON envelopes with metadata
  - Error handling: Consistent error responses with appropriate HTTP status codes
  - Authentication integration: JWT via middleware, HMAC on the ingest path
  - Rate limiting: Per-group httprate limits tuned per endpoint class

API Categories:

 1. Ingest (/api/v1/ingest):
    HMAC-authenticated sensor deltas. The gateway verifies the signature
    over the raw body, checks timestamp freshness against the replay
    window, validates the payload, and publishes to the event bus. It
    never touches occupancy state itself.

 2. Scores (/api/v1/scores):
    The live read model. Snapshots come from the score cache and are
    re-aged with the decay curve at read time, so scores sink between
    events without any writer involvement.

 3. Venues (/api/v1/venues):
    Registry CRUD (mutations admin-only) plus the per-venue transaction
    ledger for history queries.

 4. Auth (/api/v1/auth):
    Registration, login, and identity introspection backed by bcrypt and
    HS256 session tokens.

 5. Admin (/api/v1/admin):
    The simulation reset and dead-letter queue visibility.

 6. WebSocket (/ws):
    Live score_update and reset_completed pushes for map clients.

Observability endpoints (/health, /metrics, /swagger) sit outside the
versioned API root.

Usage Example:

	handler := api.NewHandler(api.HandlerConfig{...})
	router := api.NewRouter(handler, authMiddleware, authzMiddleware)
	http.ListenAndServe(":8000", router.SetupChi())
*/
package api
