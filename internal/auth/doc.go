// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package auth provides authentication and security middleware for the HTTP API.

This package implements JWT session tokens, account registration and login,
per-IP rate limiting, CORS, and security headers. It sits between incoming
HTTP requests and the API handlers. Authorization decisions (which role may
call which route) live in the authz package; this package only establishes
WHO is calling.

Key Components:

  - JWTManager: Token generation and validation using HMAC-SHA256
  - Service: Account registration, login, and admin bootstrap on top of the
    database layer (bcrypt password hashing, cost 12)
  - Middleware: HTTP middleware for authentication, rate limiting, CORS,
    and security headers
  - RateLimiter: Token bucket rate limiter per client IP

Authentication Modes:

The API supports two modes via security.auth_mode:

 1. "jwt" (default): stateless bearer tokens with configurable expiry
    (default 24h), accepted from the Authorization header or a "token"
    cookie. Tokens carry the account email and role.
 2. "none": every request passes unauthenticated. Config validation
    rejects this mode in production; it exists for local development.

Note that venue ingest devices do not use this package: POST /api/v1/ingest
authenticates with a per-venue HMAC signature checked by the API gateway.

Usage:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	accounts, err := auth.NewService(db, jwtManager)
	if err != nil {
	    return err
	}
	mw := auth.NewMiddleware(jwtManager, &cfg.Security)

	// Route wiring
	r.Post("/api/v1/admin/reset", mw.RequireRole(models.RoleAdmin, handler.Reset))
*/
package auth
