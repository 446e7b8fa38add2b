// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package models defines the shared data structures exchanged between the
HTTP API, the database layer, and the scoring pipeline.

The package is intentionally dependency-light: structs, JSON tags, and
validation tags only. Behavior lives in the packages that operate on these
types (internal/database, internal/scoring, internal/api).

Structure groups:

  - APIResponse, APIError, Metadata: the response envelope every HTTP
    endpoint returns
  - Venue, VenueScore: venue registry and live score projections
  - Transaction: the immutable occupancy delta ledger row
  - LoginRequest, RegisterRequest, UserInfo: authentication DTOs
  - Role constants: the Casbin role vocabulary
*/
package models
