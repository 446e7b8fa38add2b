// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package authz

import (
	"net/http"

	"github.com/tomtom215/venuepulse/internal/auth"
	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/metrics"
)

// Middleware provides route authorization backed by the Casbin enforcer.
// It runs after auth.Middleware.Authenticate, reading the validated claims
// from the request context.
type Middleware struct {
	enforcer *Enforcer
	authMode string
}

// NewMiddleware creates authorization middleware. With authMode "none"
// every request is allowed, matching the authentication bypass.
func NewMiddleware(enforcer *Enforcer, authMode string) *Middleware {
	return &Middleware{
		enforcer: enforcer,
		authMode: authMode,
	}
}

// Authorize enforces authorization for a fixed object and action.
func (m *Middleware) Authorize(object, action string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == "none" {
			next(w, r)
			return
		}

		claims, ok := r.Context().Value(auth.ClaimsContextKey).(*auth.Claims)
		if !ok {
			http.Error(w, "Forbidden: no authentication context", http.StatusForbidden)
			return
		}

		allowed, err := m.enforcer.EnforceWithRoles(claims.Username, claimRoles(claims), object, action)
		if err != nil {
			logging.Error().Err(err).Msg("Authorization error")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		metrics.RecordAuthzDecision(allowed)

		if !allowed {
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}

// AuthorizeRequest determines the action from the HTTP method and
// authorizes against the request path.
func (m *Middleware) AuthorizeRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == "none" {
			next(w, r)
			return
		}

		claims, ok := r.Context().Value(auth.ClaimsContextKey).(*auth.Claims)
		if !ok {
			http.Error(w, "Forbidden: no authentication context", http.StatusForbidden)
			return
		}

		action := methodToAction(r.Method)
		object := r.URL.Path

		allowed, err := m.enforcer.EnforceWithRoles(claims.Username, claimRoles(claims), object, action)
		if err != nil {
			logging.Error().Err(err).Msg("Authorization error")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		metrics.RecordAuthzDecision(allowed)

		if !allowed {
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}

// claimRoles returns the roles carried by the claims. A token without a
// role yields nil, which makes the enforcer fall back to the default role.
func claimRoles(claims *auth.Claims) []string {
	if claims.Role == "" {
		return nil
	}
	return []string{claims.Role}
}

// methodToAction maps HTTP methods to Casbin actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "write"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
