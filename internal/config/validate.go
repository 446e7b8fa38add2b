// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateBus,
		c.validateIngest,
		c.validateScoring,
		c.validateScoreCache,
		c.validateDedupStore,
		c.validateReset,
		c.validateSecurity,
		c.validateLogging,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateServer validates server configuration.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

// Bus limit constants
const (
	busMinMemory      = 64 * 1024 * 1024  // 64MB
	busMinStore       = 100 * 1024 * 1024 // 100MB
	busMaxRetention   = 365
	busMinRetention   = 1
	busMaxSubscribers = 32
)

// validateBus validates event bus configuration.
func (c *Config) validateBus() error {
	if err := validateNATSURL(c.Bus.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return c.validateBusLimits()
}

// validateBusLimits validates JetStream storage and consumer limits.
func (c *Config) validateBusLimits() error {
	if c.Bus.MaxMemory < busMinMemory {
		return fmt.Errorf("NATS_MAX_MEMORY must be at least 64MB (67108864 bytes)")
	}
	if c.Bus.MaxStore < busMinStore {
		return fmt.Errorf("NATS_MAX_STORE must be at least 100MB (104857600 bytes)")
	}
	if c.Bus.StreamRetentionDays < busMinRetention || c.Bus.StreamRetentionDays > busMaxRetention {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	if c.Bus.SubscribersCount < 1 || c.Bus.SubscribersCount > busMaxSubscribers {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and 32")
	}
	if c.Bus.AckWait < time.Second {
		return fmt.Errorf("NATS_ACK_WAIT must be at least 1s")
	}
	if c.Bus.MaxDeliver < 1 {
		return fmt.Errorf("NATS_MAX_DELIVER must be at least 1")
	}
	if c.Bus.DuplicateWindow < 0 || c.Bus.DuplicateWindow > time.Hour {
		return fmt.Errorf("NATS_DUPLICATE_WINDOW must be between 0 and 1h")
	}
	return nil
}

// validateIngest validates ingestion gateway configuration.
func (c *Config) validateIngest() error {
	if c.Ingest.ReplayWindow < 10*time.Second || c.Ingest.ReplayWindow > 24*time.Hour {
		return fmt.Errorf("INGEST_REPLAY_WINDOW must be between 10s and 24h")
	}
	if c.Ingest.MaxDelta < 1 || c.Ingest.MaxDelta > 10000 {
		return fmt.Errorf("INGEST_MAX_DELTA must be between 1 and 10000")
	}
	if c.Ingest.MaxBodyBytes < 1024 {
		return fmt.Errorf("INGEST_MAX_BODY_BYTES must be at least 1024")
	}
	return nil
}

// validateScoring validates scoring worker configuration.
func (c *Config) validateScoring() error {
	if c.Scoring.DecayTau < 10*time.Second || c.Scoring.DecayTau > 24*time.Hour {
		return fmt.Errorf("SCORE_DECAY_TAU must be between 10s and 24h")
	}
	if c.Scoring.Lanes < 1 || c.Scoring.Lanes > 64 {
		return fmt.Errorf("SCORING_LANES must be between 1 and 64")
	}
	if c.Scoring.DedupWindow < time.Minute || c.Scoring.DedupWindow > 24*time.Hour {
		return fmt.Errorf("DEDUP_WINDOW must be between 1m and 24h")
	}
	// The application window must outlast the redelivery horizon or a
	// redelivered event could reapply after its nonce expired.
	redeliveryHorizon := c.Bus.AckWait * time.Duration(c.Bus.MaxDeliver)
	if c.Scoring.DedupWindow < redeliveryHorizon {
		return fmt.Errorf("DEDUP_WINDOW (%v) must cover the redelivery horizon NATS_ACK_WAIT*NATS_MAX_DELIVER (%v)",
			c.Scoring.DedupWindow, redeliveryHorizon)
	}
	if c.Scoring.DedupMaxEntries < 1000 {
		return fmt.Errorf("DEDUP_MAX_ENTRIES must be at least 1000")
	}
	if c.Scoring.RefreshInterval < time.Second || c.Scoring.RefreshInterval > 10*time.Minute {
		return fmt.Errorf("SCORE_REFRESH_INTERVAL must be between 1s and 10m")
	}
	return nil
}

// validScoreCacheBackends defines the allowed score cache backends.
var validScoreCacheBackends = map[string]bool{
	"memory": true,
	"redis":  true,
}

// validateScoreCache validates score cache configuration.
func (c *Config) validateScoreCache() error {
	if !validScoreCacheBackends[c.ScoreCache.Backend] {
		return fmt.Errorf("SCORE_CACHE_BACKEND must be one of: memory, redis")
	}
	if c.ScoreCache.Backend == "redis" && c.ScoreCache.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when SCORE_CACHE_BACKEND is redis")
	}
	return nil
}

// validDedupStoreBackends defines the allowed dedup store backends.
var validDedupStoreBackends = map[string]bool{
	"memory": true,
	"badger": true,
}

// validateDedupStore validates dedup store configuration.
func (c *Config) validateDedupStore() error {
	if !validDedupStoreBackends[c.DedupStore.Backend] {
		return fmt.Errorf("DEDUP_STORE must be one of: memory, badger")
	}
	if c.DedupStore.Backend == "badger" && c.DedupStore.Path == "" {
		return fmt.Errorf("DEDUP_STORE_PATH is required when DEDUP_STORE is badger")
	}
	return nil
}

// validateReset validates reset controller configuration.
func (c *Config) validateReset() error {
	if c.Reset.Timeout < time.Second || c.Reset.Timeout > 10*time.Minute {
		return fmt.Errorf("RESET_TIMEOUT must be between 1s and 10m")
	}
	return nil
}

// validAuthModes defines the allowed authentication modes.
var validAuthModes = map[string]bool{
	"none": true,
	"jwt":  true,
}

// validateSecurity validates security configuration.
func (c *Config) validateSecurity() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt")
	}

	// Refuse to start without authentication in production. This prevents
	// accidental deployment of an open admin surface.
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production. " +
			"Set AUTH_MODE=jwt or use ENVIRONMENT=development for testing purposes")
	}

	if err := c.validateCORS(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}

	if c.Security.AuthMode == "jwt" {
		return c.validateJWTAuth()
	}
	return nil
}

// validateCORS rejects wildcard CORS in production with authentication
// enabled; wildcard origins plus credentials allow token theft from any
// malicious website.
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"Set specific origins: CORS_ORIGINS=https://yourdomain.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins.
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security
// concerns that should be logged at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validateJWTAuth validates JWT authentication configuration.
func (c *Config) validateJWTAuth() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	return c.validateAdminBootstrap()
}

// validateJWTSecret validates the JWT secret configuration.
func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateAdminBootstrap validates the bootstrap admin account settings.
// Development deployments may omit the password and fall back to the demo
// default; production must set a real one.
func (c *Config) validateAdminBootstrap() error {
	if c.Security.AdminEmail == "" {
		return fmt.Errorf("ADMIN_EMAIL is required when AUTH_MODE is jwt")
	}
	if !c.IsProduction() {
		return nil
	}
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when AUTH_MODE is jwt and ENVIRONMENT=production")
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	return nil
}

// IsProduction returns true if the application is running in production
// mode, determined by the ENVIRONMENT variable.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// validLogLevels defines the allowed log levels.
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats.
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration.
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateNATSURL validates that the NATS URL is properly formatted.
// Supports nats://, tls://, ws://, and wss:// schemes.
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222, nats.example.com)")
	}

	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate the
// operator forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"TODO",
	"FIXME",
	"XXX",
	"EXAMPLE",
}

// containsPlaceholder checks if a value contains common placeholder patterns.
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
