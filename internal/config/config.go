// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML config file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Configuration Categories:
//
//  1. Infrastructure:
//     - Database: DuckDB transaction store (path, memory, demo seed)
//     - Bus: embedded NATS JetStream event backbone and router middleware
//
//  2. Pipeline:
//     - Ingest: signature replay window and payload bounds
//     - Scoring: decay constant, worker lanes, dedup window
//     - ScoreCache: memory or Redis score snapshot store
//     - DedupStore: memory or Badger nonce persistence
//     - Reset: drain timeout for the admin reset
//
//  3. API & Security:
//     - Server: HTTP listener
//     - API: pagination bounds
//     - Security: JWT auth, admin bootstrap, rate limiting, CORS, RBAC
//
//  4. Observability:
//     - Logging: zerolog level and format
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	// cfg.Bus.URL, cfg.Database.Path, etc. are now populated
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Bus        BusConfig        `koanf:"bus"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	ScoreCache ScoreCacheConfig `koanf:"score_cache"`
	DedupStore DedupStoreConfig `koanf:"dedup_store"`
	Reset      ResetConfig      `koanf:"reset"`
	API        APIConfig        `koanf:"api"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_PORT: Listen port (default: 8000)
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
//   - ENVIRONMENT: "development", "staging", or "production" (default: development)
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings for the relational store that keeps
// the venue registry, users, transaction history, and dead-letter archive.
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: /data/venuepulse.duckdb)
//   - DUCKDB_MAX_MEMORY: DuckDB memory limit (default: 2GB)
//   - DUCKDB_THREADS: Worker threads, 0 = NumCPU (default: 0)
//   - SEED_DEMO_VENUES: Seed the five demo venues on first start (default: false)
type DatabaseConfig struct {
	Path           string `koanf:"path"`
	MaxMemory      string `koanf:"max_memory"`
	Threads        int    `koanf:"threads"`
	SeedDemoVenues bool   `koanf:"seed_demo_venues"`
}

// BusConfig holds NATS JetStream configuration for the append-only event log.
//
// The bus is the ordered, durable backbone between the ingestion gateway and
// the scoring worker. By default an embedded NATS server is started so the
// binary is self-contained; point URL at an external cluster and disable
// EmbeddedServer for shared deployments.
//
// Environment Variables:
//   - NATS_URL: Server URL (default: nats://127.0.0.1:4222)
//   - NATS_EMBEDDED: Run embedded server (default: true)
//   - NATS_STORE_DIR: JetStream storage directory (default: /data/nats/jetstream)
//   - NATS_MAX_MEMORY: JetStream memory cap in bytes (default: 1GB)
//   - NATS_MAX_STORE: JetStream disk cap in bytes (default: 10GB)
//   - NATS_RETENTION_DAYS: Event retention period (default: 7)
//   - NATS_DUPLICATE_WINDOW: Server-side Nats-Msg-Id dedup window (default: 2m)
//   - NATS_DURABLE_NAME: Consumer durable name (default: pulse-scorer)
//   - NATS_QUEUE_GROUP: Queue group for load balancing (default: scorers)
//   - NATS_SUBSCRIBERS: Concurrent message processors (default: 4)
//   - NATS_ACK_WAIT: Redelivery timeout per message (default: 30s)
//   - NATS_MAX_DELIVER: Delivery attempts before poison routing (default: 5)
//   - NATS_ROUTER_RETRY_COUNT: In-process handler retries (default: 3)
//   - NATS_ROUTER_RETRY_INTERVAL: Initial retry backoff (default: 100ms)
//   - NATS_ROUTER_THROTTLE: Messages/second cap, 0 = unlimited (default: 0)
//   - NATS_ROUTER_POISON_TOPIC: Dead-letter topic (default: occupancy.poison)
//   - NATS_ROUTER_CLOSE_TIMEOUT: Graceful router shutdown budget (default: 30s)
type BusConfig struct {
	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process NATS server.
	// If false, an external server is expected at URL.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory is the maximum memory for JetStream in bytes.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore is the maximum disk storage for JetStream in bytes.
	MaxStore int64 `koanf:"max_store"`

	// StreamRetentionDays is how long the event log keeps messages.
	StreamRetentionDays int `koanf:"stream_retention_days"`

	// DuplicateWindow is the JetStream Nats-Msg-Id dedup window. This is
	// the transport-level layer under the application nonce window.
	DuplicateWindow time.Duration `koanf:"duplicate_window"`

	// DurableName is the scoring consumer durable name.
	DurableName string `koanf:"durable_name"`

	// QueueGroup is the queue group for load balancing consumers.
	QueueGroup string `koanf:"queue_group"`

	// SubscribersCount is the number of concurrent message processors.
	// Per-venue apply order is serialized by the scoring lanes, so values
	// above 1 are safe.
	SubscribersCount int `koanf:"subscribers_count"`

	// AckWait is how long JetStream waits for an ack before redelivering.
	AckWait time.Duration `koanf:"ack_wait"`

	// MaxDeliver is the total delivery attempts before a message is
	// considered poison.
	MaxDeliver int `koanf:"max_deliver"`

	// RouterRetryCount is the in-process retry budget before nacking.
	RouterRetryCount int `koanf:"router_retry_count"`

	// RouterRetryInitialInterval is the initial backoff between retries.
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`

	// RouterThrottlePerSecond limits messages processed per second (0 = unlimited).
	RouterThrottlePerSecond int `koanf:"router_throttle_per_second"`

	// RouterPoisonQueueTopic is the topic for permanently failed messages.
	RouterPoisonQueueTopic string `koanf:"router_poison_queue_topic"`

	// RouterCloseTimeout is the maximum wait for graceful router shutdown.
	RouterCloseTimeout time.Duration `koanf:"router_close_timeout"`
}

// IngestConfig holds ingestion gateway settings.
//
// Environment Variables:
//   - INGEST_REPLAY_WINDOW: Max |now - occurred_at| accepted even with a
//     valid signature (default: 5m)
//   - INGEST_MAX_DELTA: Max absolute per-event occupancy delta (default: 500)
//   - INGEST_MAX_BODY_BYTES: Request body cap in bytes (default: 1048576)
type IngestConfig struct {
	// ReplayWindow bounds timestamp freshness. Events older or further in
	// the future than this are rejected regardless of signature validity.
	ReplayWindow time.Duration `koanf:"replay_window"`

	// MaxDelta is the largest |delta| a single event may carry.
	MaxDelta int `koanf:"max_delta"`

	// MaxBodyBytes caps the ingest request body size.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// ScoringConfig holds scoring worker settings.
//
// The score formula is score = round(100 * min(1, occupancy/capacity) *
// exp(-Δt/DecayTau)), clamped to [0,100], where Δt is the time since the
// venue's most recent event.
//
// Environment Variables:
//   - SCORE_DECAY_TAU: Exponential decay constant τ (default: 15m)
//   - SCORING_LANES: Single-writer lanes for state application (default: 8)
//   - DEDUP_WINDOW: (venue_id, nonce) dedup TTL (default: 15m)
//   - DEDUP_MAX_ENTRIES: Dedup window capacity bound (default: 100000)
//   - SCORE_REFRESH_INTERVAL: Decayed-score rebroadcast period (default: 15s)
type ScoringConfig struct {
	// DecayTau is the exponential decay constant. Smaller values make
	// scores fall faster between events.
	DecayTau time.Duration `koanf:"decay_tau"`

	// Lanes is the number of state-application goroutines. Each venue is
	// pinned to exactly one lane by venue ID hash.
	Lanes int `koanf:"lanes"`

	// DedupWindow is how long (venue_id, nonce) pairs are remembered.
	// Must exceed the bus redelivery horizon (AckWait * MaxDeliver).
	DedupWindow time.Duration `koanf:"dedup_window"`

	// DedupMaxEntries bounds dedup memory; the oldest entries are evicted
	// first once the cap is reached.
	DedupMaxEntries int `koanf:"dedup_max_entries"`

	// RefreshInterval is how often decayed scores are rebroadcast to
	// websocket subscribers between events.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// ScoreCacheConfig holds the score snapshot store settings.
//
// Environment Variables:
//   - SCORE_CACHE_BACKEND: "memory" or "redis" (default: memory)
//   - REDIS_ADDR: Redis address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password (default: empty)
//   - REDIS_DB: Redis database number (default: 0)
//   - SCORE_CACHE_TTL: Snapshot expiry (default: 24h)
type ScoreCacheConfig struct {
	Backend       string        `koanf:"backend"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	TTL           time.Duration `koanf:"ttl"`
}

// DedupStoreConfig holds the nonce dedup persistence settings.
//
// With the default memory backend the dedup window is rebuilt empty on
// restart; the JetStream duplicate window still suppresses transport-level
// replays. The badger backend persists seen nonces across restarts.
//
// Environment Variables:
//   - DEDUP_STORE: "memory" or "badger" (default: memory)
//   - DEDUP_STORE_PATH: BadgerDB directory (required for badger)
type DedupStoreConfig struct {
	Backend string `koanf:"backend"`
	Path    string `koanf:"path"`
}

// ResetConfig holds admin reset settings.
//
// Environment Variables:
//   - RESET_TIMEOUT: Max time to drain lanes and clear stores before the
//     reset aborts with an error (default: 30s)
type ResetConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// APIConfig holds API pagination and response settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication and authorization settings.
//
// Producer authentication (the ingest endpoint) is always per-venue HMAC and
// is not governed by AuthMode; AuthMode controls the operator-facing API.
//
// Environment Variables:
//   - AUTH_MODE: "jwt" or "none" (default: jwt)
//   - JWT_SECRET: HMAC signing secret, 32+ chars (required for jwt)
//   - SESSION_TIMEOUT: JWT lifetime (default: 24h)
//   - ADMIN_EMAIL: Bootstrap admin account (default: admin@example.com)
//   - ADMIN_PASSWORD: Bootstrap admin password (required in production)
//   - RATE_LIMIT_REQUESTS: Requests per window per IP (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
//   - DISABLE_RATE_LIMIT: Disable rate limiting (default: false)
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
//   - TRUSTED_PROXIES: Comma-separated proxy CIDRs for client IP extraction
//   - CASBIN_DEFAULT_ROLE: Role for users without an explicit role (default: viewer)
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminEmail        string        `koanf:"admin_email"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`

	// Casbin RBAC authorization settings.
	Casbin CasbinConfig `koanf:"casbin"`
}

// CasbinConfig holds Casbin RBAC authorization settings.
//
// The model and policy are embedded; DefaultRole applies to authenticated
// users whose stored role is empty or unknown.
type CasbinConfig struct {
	DefaultRole string `koanf:"default_role"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
