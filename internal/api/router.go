// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

// Package api provides HTTP routing using Chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/venuepulse/internal/auth"
	"github.com/tomtom215/venuepulse/internal/authz"
	"github.com/tomtom215/venuepulse/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
// This allows the auth, authz, and instrumentation middleware to work with Chi's r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router sets up HTTP routes using Chi router.
type Router struct {
	handler         *Handler
	middleware      *auth.Middleware
	authzMiddleware *authz.Middleware
	chiMiddleware   *ChiMiddleware
}

// NewRouter creates a new router with all routes configured.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, authzMiddleware *authz.Middleware) *Router {
	// Create Chi middleware from existing security config
	reqsPerWindow, rateLimitDisabled := authMiddleware.GetRateLimitConfig()
	chiMw := NewChiMiddlewareFromAuth(
		authMiddleware.GetCORSOrigins(),
		reqsPerWindow,
		authMiddleware.GetRateLimitWindow(),
		rateLimitDisabled,
	)

	return &Router{
		handler:         handler,
		middleware:      authMiddleware,
		authzMiddleware: authzMiddleware,
		chiMiddleware:   chiMw,
	}
}

// SetupChi configures all HTTP routes using Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	// Applied to ALL routes in order
	r.Use(RequestIDWithLogging())      // Add X-Request-ID header with logging context
	r.Use(chimiddleware.RealIP)        // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)     // Recover from panics
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	// ========================
	// Health Endpoints
	// ========================
	// Root-level so orchestrators reach them without the API prefix.
	// Permissive rate limiting (1000/min) allows frequent probes
	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// ========================
	// Authentication Endpoints
	// ========================
	// Strict rate limiting for auth endpoints (brute force prevention)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitAuth())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Post("/register", router.handler.Register)

		// Login has strictest rate limiting (5 attempts per 5 minutes)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)

		// Token introspection requires a valid token
		r.With(
			chiMiddleware(router.middleware.Authenticate),
			chiMiddleware(router.authzMiddleware.AuthorizeRequest),
		).Get("/me", router.handler.Me)
	})

	// ========================
	// Ingest Gateway
	// ========================
	// Sensor agents authenticate with per-venue HMAC signatures, not
	// JWTs, so this group deliberately skips the auth middleware. The
	// handler verifies the signature before touching any field
	r.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitIngest())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Post("/", router.handler.Ingest)
	})

	// ========================
	// Score Read Model
	// ========================
	// Public read endpoints for map clients. Kiosk dashboards poll these
	// without credentials, so no auth; permissive rate limiting keeps a
	// wall of displays refreshing together from starving each other
	r.Route("/api/v1/scores", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitScores())
		r.Use(APISecurityHeaders())
		r.Use(router.handler.PerfMon().Middleware)
		r.Use(chiMiddleware(middleware.Compression))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/", router.handler.Scores)
		r.Get("/{venueID}", router.handler.VenueScore)
	})

	// ========================
	// Venue Registry
	// ========================
	// Reads are public; mutations and per-venue transaction history go
	// through JWT authentication plus Casbin role checks
	r.Route("/api/v1/venues", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		// Public reads
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.handler.PerfMon().Middleware)
			r.Use(chiMiddleware(middleware.Compression))

			r.Get("/", router.handler.ListVenues)
			r.Get("/{venueID}", router.handler.GetVenue)
		})

		// Transaction history requires a token; the policy grants it to
		// operators and above
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(chiMiddleware(router.middleware.Authenticate))
			r.Use(chiMiddleware(router.authzMiddleware.AuthorizeRequest))

			r.Get("/{venueID}/transactions", router.handler.VenueTransactions)
		})

		// Registry mutations are admin-only
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWrite())
			r.Use(chiMiddleware(router.middleware.Authenticate))
			r.Use(chiMiddleware(router.authzMiddleware.AuthorizeRequest))

			r.Post("/", router.handler.CreateVenue)
			r.Put("/{venueID}", router.handler.UpdateVenue)
			r.Delete("/{venueID}", router.handler.DeleteVenue)
		})
	})

	// ========================
	// Admin Endpoints
	// ========================
	// Pipeline reset and DLQ inspection, admin role required
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(router.middleware.Authenticate))
		r.Use(chiMiddleware(router.authzMiddleware.AuthorizeRequest))

		r.With(router.chiMiddleware.RateLimitWrite()).Post("/reset", router.handler.Reset)
		r.Get("/dlq", router.handler.DLQ)
	})

	// ========================
	// WebSocket
	// ========================
	// Root-level live score stream; rate limit bounds the upgrade rate
	r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", router.handler.WebSocket)

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
