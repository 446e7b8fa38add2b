// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

// Package main provides the VenuePulse HTTP server
//
// VenuePulse turns HMAC-signed occupancy deltas from venue door sensors
// into live 0-100 busyness scores for a city of venues.
//
// @title VenuePulse API
// @version 1.0
// @description Real-time venue occupancy ingestion and scoring platform
// @description
// @description ## Features
// @description
// @description - **Signed Ingest**: Every sensor event carries a per-venue HMAC-SHA256 signature with nonce and timestamp replay protection
// @description - **Durable Pipeline**: Embedded NATS JetStream bus decouples ingest from scoring; accepted events survive restarts
// @description - **Live Busyness Scores**: 0-100 score per venue with exponential decay toward empty between events
// @description - **Real-time Updates**: WebSocket pushes on every score change and reset
// @description - **Queryable Ledger**: Complete per-venue event history in embedded DuckDB
// @description - **Role-Based Access**: viewer, operator, and admin roles with inheritance
// @description
// @description ## Authentication
// @description
// @description Operator and admin endpoints require a JWT in the Authorization header.
// @description Obtain a token via `/api/v1/auth/login` and send it as `Authorization: Bearer {token}`.
// @description Sensor traffic on `/api/v1/ingest` authenticates with per-venue HMAC signatures instead of JWTs.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address.
// @description Ingest and score reads carry higher dedicated limits; login attempts carry a stricter one.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-08-25T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/venuepulse/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT issued by /api/v1/auth/login. Send as: Bearer {token}
//
// @tag.name Core
// @tag.description Health and readiness endpoints for load balancers and Kubernetes probes
//
// @tag.name Ingest
// @tag.description Signed occupancy event submission for venue sensor agents
//
// @tag.name Scores
// @tag.description Live busyness scores with read-time decay
//
// @tag.name Venues
// @tag.description Venue registry management
//
// @tag.name Transactions
// @tag.description Per-venue occupancy event history
//
// @tag.name Auth
// @tag.description Authentication and account endpoints
//
// @tag.name Realtime
// @tag.description WebSocket connections for live score and reset notifications
//
// @tag.name Admin
// @tag.description Administrative operations requiring the admin role
package main
