// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/venuepulse/internal/auth"
	"github.com/tomtom215/venuepulse/internal/cache"
	"github.com/tomtom215/venuepulse/internal/config"
	"github.com/tomtom215/venuepulse/internal/database"
	"github.com/tomtom215/venuepulse/internal/eventbus"
	"github.com/tomtom215/venuepulse/internal/middleware"
	"github.com/tomtom215/venuepulse/internal/reset"
	"github.com/tomtom215/venuepulse/internal/scorecache"
	"github.com/tomtom215/venuepulse/internal/scoring"
	ws "github.com/tomtom215/venuepulse/internal/websocket"
)

// secretCacheTTL bounds how long a venue's signing key is served from
// memory. A rotated or deleted key stops verifying within this window
// even if the invalidation hook is missed.
const secretCacheTTL = time.Minute

// EventPublisher publishes occupancy events to the bus. The gateway only
// needs the publish operation, so tests can substitute a recorder.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *eventbus.OccupancyEvent) error
}

// ResetRunner executes the occupancy reset. Implemented by reset.Controller.
type ResetRunner interface {
	Reset(ctx context.Context) (*reset.Result, error)
	InProgress() bool
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct, constructor, WebSocket upgrader (this file)
//   - handlers_helpers.go: Shared response and parameter helpers
//   - handlers_ingest.go: The HMAC-authenticated ingest gateway
//   - handlers_scores.go: Live score read model (decay at read time)
//   - handlers_venues.go: Venue registry CRUD
//   - handlers_transactions.go: Per-venue transaction history
//   - handlers_auth.go: Registration, login, identity
//   - handlers_admin.go: Reset and dead-letter queue endpoints
//   - handlers_health.go: Health and readiness endpoints
//   - handlers_websocket.go: WebSocket upgrade endpoint
type Handler struct {
	db          *database.DB
	config      *config.Config
	publisher   EventPublisher
	scores      scorecache.Store
	engine      *scoring.Engine
	users       *auth.Service
	wsHub       *ws.Hub
	startTime   time.Time
	secretCache *cache.Cache
	perfMon     *middleware.PerformanceMonitor
	worker      *scoring.Worker         // optional, set via SetWorker
	resetRunner ResetRunner             // optional, set via SetResetRunner
	health      *eventbus.HealthChecker // optional, set via SetHealthChecker
}

// NewHandler creates a new API handler with all required dependencies.
//
// Dependencies:
//   - db: Venue registry, accounts, transaction ledger, DLQ table
//   - cfg: Application configuration
//   - publisher: Event bus publisher for the ingest gateway
//   - scores: Score snapshot cache (the live read model)
//   - engine: Decay curve, used to re-age snapshots at read time
//   - users: Account service for register/login/me
//   - wsHub: WebSocket hub for the live feed (may be nil in tests)
//
// The handler initializes with a one-minute TTL cache for venue signing
// keys (the ingest hot path does not hit the database per event) and a
// performance monitor tracking the last 1000 requests.
//
// The scoring worker, reset controller, and bus health checker start
// after the HTTP layer is constructed, so they attach late through
// SetWorker, SetResetRunner, and SetHealthChecker.
func NewHandler(db *database.DB, cfg *config.Config, publisher EventPublisher, scores scorecache.Store, engine *scoring.Engine, users *auth.Service, wsHub *ws.Hub) *Handler {
	return &Handler{
		db:          db,
		config:      cfg,
		publisher:   publisher,
		scores:      scores,
		engine:      engine,
		users:       users,
		wsHub:       wsHub,
		startTime:   time.Now(),
		secretCache: cache.New(secretCacheTTL),
		perfMon:     middleware.NewPerformanceMonitor(1000),
	}
}

// SetWorker attaches the scoring worker so venue mutations can invalidate
// its venue metadata cache. Safe to leave unset in tests.
func (h *Handler) SetWorker(w *scoring.Worker) {
	h.worker = w
}

// SetResetRunner attaches the reset controller. The admin reset endpoint
// returns 503 until this is set.
func (h *Handler) SetResetRunner(rr ResetRunner) {
	h.resetRunner = rr
}

// SetHealthChecker attaches the bus health checker so /health can report
// publisher and stream status alongside the database ping.
func (h *Handler) SetHealthChecker(hc *eventbus.HealthChecker) {
	h.health = hc
}

// PerfMon exposes the request performance monitor for router wiring.
func (h *Handler) PerfMon() *middleware.PerformanceMonitor {
	return h.perfMon
}

// getUpgrader returns a WebSocket upgrader with origin checking.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates the Origin header against the configured
// CORS origins. Browsers always send Origin on WebSocket upgrades, so an
// empty Origin is rejected rather than trusted.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
