// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package main is the entry point for the VenuePulse server application.

VenuePulse is a self-hosted real-time occupancy platform that turns
HMAC-signed entry/exit deltas from venue door sensors into live 0-100
busyness scores, with a durable event log, a queryable transaction
ledger, and WebSocket push on every score change.

# Application Architecture

The server implements a layered architecture with Suture v4 process supervision:

	RootSupervisor ("venuepulse")
	├── DataSupervisor ("data-layer")
	│   └── Bus components (embedded NATS, router, appender, poison recorder)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket Hub (real-time score updates)
	│   ├── Scoring lanes (per-venue single-writer state)
	│   └── Score refresher (decay rebroadcast)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (Chi router, REST + WebSocket)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB with the venue registry, users, ledger, and DLQ tables
 4. Authentication: JWT account auth plus Casbin RBAC (viewer/operator/admin)
 5. Score cache: in-memory or Redis snapshot store
 6. Scoring pipeline: engine, lanes, dedup window, ledger appender, worker
 7. Event bus: embedded NATS JetStream, publisher, router, poison recorder
 8. Accumulator rebuild: ledger replay restores occupancy after restart
 9. Supervisor Tree: Suture v4 process supervision
 10. HTTP Server: ingest gateway, score reads, admin reset

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	HTTP_PORT=8000               # HTTP listener port
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Authentication (operator-facing API; ingest is always HMAC)
	AUTH_MODE=jwt                # jwt or none
	JWT_SECRET=<32+ chars>       # Required for JWT mode
	ADMIN_EMAIL=admin@example.com
	ADMIN_PASSWORD=<password>

	# Storage
	DUCKDB_PATH=/data/venuepulse.duckdb
	SEED_DEMO_VENUES=true        # Seed the five demo venues on first start

	# Event bus
	NATS_EMBEDDED=true           # Self-contained by default
	NATS_STORE_DIR=/data/nats/jetstream
	NATS_URL=nats://127.0.0.1:4222

	# Scoring
	SCORE_DECAY_TAU=15m          # Exponential decay constant
	SCORING_LANES=8              # Per-venue single-writer lanes
	SCORE_CACHE_BACKEND=memory   # memory or redis

See .env.example for the complete configuration reference.

# Producer Authentication

The ingest endpoint does not use JWTs. Every sensor event carries an
X-Signature header: lowercase hex HMAC-SHA256 of the raw request body
under the venue's signing key. Nonce dedup and a timestamp freshness
window make captured requests worthless to a replay attacker.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections
 2. Broadcasts shutdown to WebSocket clients
 3. Waits for in-flight requests (10s timeout)
 4. Stops the router and flushes the ledger appender
 5. Closes subscribers, the publisher, and the NATS connection
 6. Reports any services that failed to stop

# Usage Examples

Development (no auth, demo venues):

	export AUTH_MODE=none
	export SEED_DEMO_VENUES=true
	go run ./cmd/server

Production (JWT):

	export AUTH_MODE=jwt
	export JWT_SECRET=$(openssl rand -base64 32)
	export ADMIN_EMAIL=ops@example.com ADMIN_PASSWORD=secure-password
	export DUCKDB_PATH=/data/venuepulse.duckdb
	./venuepulse

Docker:

	docker run -d \
	  -e SEED_DEMO_VENUES=true \
	  -e JWT_SECRET=xxx \
	  -e ADMIN_PASSWORD=xxx \
	  -v venuepulse-data:/data \
	  -p 8000:8000 \
	  ghcr.io/tomtom215/venuepulse

# API Documentation

Swagger documentation is available at /swagger/index.html when the server
is running. The API is organized into categories:

  - Core: Health and readiness checks
  - Ingest: Signed occupancy event submission
  - Scores: Live busyness scores with read-time decay
  - Venues: Venue registry CRUD
  - Transactions: Per-venue event history
  - Auth: Registration, login, identity
  - Realtime: WebSocket score and reset notifications
  - Admin: Simulation reset and dead-letter queue inspection

# See Also

  - internal/config: Configuration management
  - internal/supervisor: Process supervision
  - internal/api: HTTP handlers and routing
  - internal/scoring: Event worker and score engine
  - internal/eventbus: NATS JetStream event backbone
*/
package main
