// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package config provides centralized configuration management for VenuePulse.

Configuration is loaded with Koanf from three layered sources, highest
priority last:

  - Built-in defaults (every field has a working default)
  - Optional YAML config file (config.yaml, or CONFIG_PATH)
  - Environment variables

# Configuration Structure

The package organizes configuration into logical groups:

  - ServerConfig: HTTP listener settings (host, port, timeouts)
  - DatabaseConfig: DuckDB path and performance tuning
  - BusConfig: NATS JetStream connection, stream and consumer settings
  - IngestConfig: HMAC ingestion gateway limits
  - ScoringConfig: decay constant, lane count, dedup window
  - ScoreCacheConfig: score snapshot cache backend (memory or redis)
  - DedupStoreConfig: nonce replay store backend (memory or badger)
  - ResetConfig: reset drain timeout
  - APIConfig: pagination limits
  - SecurityConfig: auth mode, JWT, rate limiting, CORS, Casbin roles
  - LoggingConfig: level, format, caller reporting

# Environment Variables

Only explicitly mapped variables are read; unknown environment noise is
ignored. The common ones:

  - HTTP_PORT: Listen port (default: 8000)
  - DUCKDB_PATH: Database file path (default: /data/venuepulse.duckdb)
  - NATS_URL: Bus URL (default: nats://127.0.0.1:4222)
  - NATS_EMBEDDED: Run an in-process JetStream server (default: true)
  - SCORE_DECAY_TAU: Exponential decay time constant (default: 15m)
  - AUTH_MODE: none or jwt (default: jwt)
  - JWT_SECRET: Token signing secret, min 32 chars (required for jwt)

See envTransformFunc in koanf.go for the full mapping table.

# Validation

Load validates the assembled configuration before returning it. Validation
is fail-fast with the offending environment variable named in the error.
Production environments additionally require authentication, a real admin
password, and non-wildcard CORS origins.
*/
package config
