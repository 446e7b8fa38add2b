// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/venuepulse/docs" // Import generated swagger docs
	"github.com/tomtom215/venuepulse/internal/api"
	"github.com/tomtom215/venuepulse/internal/auth"
	"github.com/tomtom215/venuepulse/internal/authz"
	"github.com/tomtom215/venuepulse/internal/config"
	"github.com/tomtom215/venuepulse/internal/database"
	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/reset"
	"github.com/tomtom215/venuepulse/internal/scorecache"
	"github.com/tomtom215/venuepulse/internal/scoring"
	"github.com/tomtom215/venuepulse/internal/supervisor"
	"github.com/tomtom215/venuepulse/internal/supervisor/services"
	ws "github.com/tomtom215/venuepulse/internal/websocket"
)

// demoAdminPassword is the development fallback when ADMIN_PASSWORD is
// unset. Config validation rejects an empty password in production.
const demoAdminPassword = "changeme"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting VenuePulse with supervisor tree")
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("embedded_nats", cfg.Bus.EmbeddedServer).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("score_cache", cfg.ScoreCache.Backend).
		Msg("Configuration loaded")

	// Initialize DuckDB: venue registry, users, ledger, dead-letter archive
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Seed the five demo venues if enabled (for demos and integration tests)
	if cfg.Database.SeedDemoVenues {
		logging.Info().Msg("Demo venue seeding enabled (SEED_DEMO_VENUES=true)")
		if err := db.SeedDemoVenues(context.Background()); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				logging.Error().Err(closeErr).Msg("Error closing database")
			}
			logging.Fatal().Err(err).Msg("Failed to seed demo venues")
		}
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	// Create supervisor tree
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Create WebSocket hub for real-time score updates (before the worker,
	// which broadcasts through it)
	wsHub := ws.NewHub()

	// === AUTHENTICATION ===
	// Operator-facing API auth. The ingest endpoint authenticates with
	// per-venue HMAC signatures regardless of this mode.
	var jwtManager *auth.JWTManager
	var users *auth.Service

	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		users, err = auth.NewService(db, jwtManager)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize account service")
		}

		adminPassword := cfg.Security.AdminPassword
		if adminPassword == "" {
			adminPassword = demoAdminPassword
			logging.Warn().Msg("ADMIN_PASSWORD not set, using the demo default - change it immediately")
		}
		if _, err := users.EnsureAdmin(ctx, cfg.Security.AdminEmail, adminPassword); err != nil {
			logging.Fatal().Err(err).Msg("Failed to bootstrap admin account")
		}
		logging.Info().Str("email", cfg.Security.AdminEmail).Msg("JWT authentication enabled")
	} else if cfg.Security.AuthMode == "none" {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  All operator endpoints are publicly accessible!")
		logging.Warn().Msg("  This mode should ONLY be used for:")
		logging.Warn().Msg("    - Local development")
		logging.Warn().Msg("    - Completely isolated private networks")
		logging.Warn().Msg("    - CI/CD testing environments")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  NEVER use AUTH_MODE=none in production or on public networks!")
		logging.Warn().Msg("============================================================")
	}

	authMiddleware := auth.NewMiddleware(jwtManager, &cfg.Security)

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
		logging.Warn().Msg("This should only be used for CI/CD tests!")
	}

	// CRITICAL-005: Warn about wildcard CORS when authentication is enabled
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: CORS is configured with wildcard origin (CORS_ORIGINS=*)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  This allows ANY website to make cross-origin requests to your API.")
		logging.Warn().Msg("  With authentication enabled, attackers can steal credentials")
		logging.Warn().Msg("  via malicious websites.")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  RECOMMENDED: Set specific origins in production:")
		logging.Warn().Msg("    CORS_ORIGINS=https://yourdomain.com")
		logging.Warn().Msg("============================================================")
	}

	// === AUTHORIZATION (Casbin RBAC) ===
	enforcerCfg := authz.DefaultEnforcerConfig()
	if cfg.Security.Casbin.DefaultRole != "" {
		enforcerCfg.DefaultRole = cfg.Security.Casbin.DefaultRole
	}
	enforcer, err := authz.NewEnforcer(enforcerCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize Casbin enforcer")
	}
	authzMiddleware := authz.NewMiddleware(enforcer, cfg.Security.AuthMode)
	logging.Info().Str("default_role", enforcerCfg.DefaultRole).Msg("Casbin RBAC enforcer initialized")

	// === SCORING PIPELINE ===

	// Score snapshot cache: the live read model behind GET /scores
	scores, err := scorecache.NewStore(&cfg.ScoreCache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize score cache")
	}
	logging.Info().Str("backend", cfg.ScoreCache.Backend).Msg("Score cache initialized")

	// Decay engine: score = 100 * min(1, occupancy/capacity) * exp(-dt/tau)
	engine := scoring.NewEngine(cfg.Scoring.DecayTau)

	// Per-venue single-writer lanes for ordered state application
	states := scoring.NewStateStore(cfg.Scoring.Lanes)

	// Application-level (venue_id, nonce) dedup window
	dedup, err := scoring.NewDeduplicator(&cfg.DedupStore, cfg.Scoring.DedupWindow, cfg.Scoring.DedupMaxEntries)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize deduplicator")
	}
	logging.Info().
		Str("backend", cfg.DedupStore.Backend).
		Dur("window", cfg.Scoring.DedupWindow).
		Msg("Dedup window initialized")

	// Batched ledger appender (started with the bus components)
	appender, err := scoring.NewAppender(db, scoring.DefaultAppenderConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create ledger appender")
	}

	// The scoring worker: consumes bus events, applies deltas, publishes
	// score snapshots, and appends ledger rows
	worker, err := scoring.NewWorker(scoring.WorkerOptions{
		States:      states,
		Dedup:       dedup,
		Venues:      db,
		Scores:      scores,
		Appender:    appender,
		Engine:      engine,
		Broadcaster: wsHub,
		Config:      scoring.DefaultWorkerConfig(),
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create scoring worker")
	}
	worker.StartCleanup(ctx)

	// === EVENT BUS ===
	// Embedded NATS JetStream, publisher, router (scoring consumer), and
	// the poison recorder. Started later by the supervisor's BusService.
	busComponents, err := InitBus(cfg, db, worker, appender)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event bus")
	}

	// Rebuild accumulators and score snapshots from the ledger before
	// message consumption begins, so a restart resumes where it left off
	if err := worker.Rebuild(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to rebuild occupancy state from ledger")
	}
	logging.Info().Msg("Occupancy state rebuilt from ledger")

	// Decay refresher: rebroadcasts decayed scores between events
	refresher, err := scoring.NewRefresher(scores, engine, wsHub, cfg.Scoring.RefreshInterval)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create score refresher")
	}

	// Reset controller: the atomic wipe behind POST /admin/reset
	resetController, err := reset.NewController(reset.Options{
		States:      states,
		Appender:    appender,
		Ledger:      db,
		Scores:      scores,
		Dedup:       dedup,
		Stream:      busComponents.StreamInitializer(),
		Rebuilder:   worker,
		Broadcaster: wsHub,
		Timeout:     cfg.Reset.Timeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create reset controller")
	}

	// === HTTP LAYER ===
	handler := api.NewHandler(db, cfg, busComponents.Publisher(), scores, engine, users, wsHub)
	handler.SetWorker(worker)
	handler.SetResetRunner(resetController)
	handler.SetHealthChecker(busComponents.HealthChecker())

	router := api.NewRouter(handler, authMiddleware, authzMiddleware)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Data layer: bus components (embedded NATS, router, appender, poison recorder)
	tree.AddDataService(services.NewBusService(busComponents))
	logging.Info().Msg("Bus components added to supervisor tree")

	// Messaging layer: WebSocket hub, scoring lanes, decay refresher
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	tree.AddMessagingService(services.NewRunnerService(states, "scoring-lanes"))
	tree.AddMessagingService(services.NewRunnerService(refresher, "score-refresher"))
	logging.Info().
		Int("lanes", cfg.Scoring.Lanes).
		Dur("refresh_interval", cfg.Scoring.RefreshInterval).
		Msg("WebSocket hub, scoring lanes, and refresher added to supervisor tree")

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
