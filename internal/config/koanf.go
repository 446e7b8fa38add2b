// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/venuepulse/config.yaml",
	"/etc/venuepulse/config.yml",
}

// ConfigPathEnvVar is the environment variable that overrides the config
// file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values. Defaults
// are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:           "/data/venuepulse.duckdb",
			MaxMemory:      "2GB",
			Threads:        0, // 0 = use runtime.NumCPU()
			SeedDemoVenues: false,
		},
		Bus: BusConfig{
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           1 << 30,  // 1GB
			MaxStore:            10 << 30, // 10GB
			StreamRetentionDays: 7,
			DuplicateWindow:     2 * time.Minute,
			DurableName:         "pulse-scorer",
			QueueGroup:          "scorers",
			SubscribersCount:    4,
			AckWait:             30 * time.Second,
			MaxDeliver:          5,
			// Router middleware defaults
			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterThrottlePerSecond:    0, // unlimited
			RouterPoisonQueueTopic:     "occupancy.poison",
			RouterCloseTimeout:         30 * time.Second,
		},
		Ingest: IngestConfig{
			ReplayWindow: 5 * time.Minute,
			MaxDelta:     500,
			MaxBodyBytes: 1 << 20, // 1MiB
		},
		Scoring: ScoringConfig{
			DecayTau:        15 * time.Minute,
			Lanes:           8,
			DedupWindow:     15 * time.Minute,
			DedupMaxEntries: 100_000,
			RefreshInterval: 15 * time.Second,
		},
		ScoreCache: ScoreCacheConfig{
			Backend:       "memory",
			RedisAddr:     "localhost:6379",
			RedisPassword: "",
			RedisDB:       0,
			TTL:           24 * time.Hour,
		},
		DedupStore: DedupStoreConfig{
			Backend: "memory",
			Path:    "/data/dedup",
		},
		Reset: ResetConfig{
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			AuthMode:          "jwt",
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			AdminEmail:        "admin@example.com",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},
			Casbin: CasbinConfig{
				DefaultRole: "viewer",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence: ENV > File > Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// Names are mapped to koanf paths via the explicit table below:
	// NATS_STORE_DIR -> bus.store_dir, JWT_SECRET -> security.jwt_secret
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Comma-separated env values for slice fields
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when they arrive as env var strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings but the config expects
// slices; YAML values are already slices and are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped, preventing random
// environment noise from polluting the config.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - NATS_STORE_DIR -> bus.store_dir
//   - SCORE_DECAY_TAU -> scoring.decay_tau
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",
		"seed_demo_venues":  "database.seed_demo_venues",

		// Bus mappings
		"nats_url":              "bus.url",
		"nats_embedded":         "bus.embedded_server",
		"nats_store_dir":        "bus.store_dir",
		"nats_max_memory":       "bus.max_memory",
		"nats_max_store":        "bus.max_store",
		"nats_retention_days":   "bus.stream_retention_days",
		"nats_duplicate_window": "bus.duplicate_window",
		"nats_durable_name":     "bus.durable_name",
		"nats_queue_group":      "bus.queue_group",
		"nats_subscribers":      "bus.subscribers_count",
		"nats_ack_wait":         "bus.ack_wait",
		"nats_max_deliver":      "bus.max_deliver",

		// Router middleware mappings
		"nats_router_retry_count":    "bus.router_retry_count",
		"nats_router_retry_interval": "bus.router_retry_initial_interval",
		"nats_router_throttle":       "bus.router_throttle_per_second",
		"nats_router_poison_topic":   "bus.router_poison_queue_topic",
		"nats_router_close_timeout":  "bus.router_close_timeout",

		// Ingest mappings
		"ingest_replay_window":  "ingest.replay_window",
		"ingest_max_delta":      "ingest.max_delta",
		"ingest_max_body_bytes": "ingest.max_body_bytes",

		// Scoring mappings
		"score_decay_tau":        "scoring.decay_tau",
		"scoring_lanes":          "scoring.lanes",
		"dedup_window":           "scoring.dedup_window",
		"dedup_max_entries":      "scoring.dedup_max_entries",
		"score_refresh_interval": "scoring.refresh_interval",

		// Score cache mappings
		"score_cache_backend": "score_cache.backend",
		"redis_addr":          "score_cache.redis_addr",
		"redis_password":      "score_cache.redis_password",
		"redis_db":            "score_cache.redis_db",
		"score_cache_ttl":     "score_cache.ttl",

		// Dedup store mappings
		"dedup_store":      "dedup_store.backend",
		"dedup_store_path": "dedup_store.path",

		// Reset mappings
		"reset_timeout": "reset.timeout",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Security mappings
		"auth_mode":           "security.auth_mode",
		"jwt_secret":          "security.jwt_secret",
		"session_timeout":     "security.session_timeout",
		"admin_email":         "security.admin_email",
		"admin_password":      "security.admin_password",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",
		"trusted_proxies":     "security.trusted_proxies",
		"casbin_default_role": "security.casbin.default_role",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped
	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// The caller is responsible for mutex protection when swapping the active
// configuration inside the callback.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
