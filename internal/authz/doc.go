// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

// Package authz provides authorization using Casbin.
//
// This package implements Role-Based Access Control (RBAC) for the
// VenuePulse API, enforcing path-based access policies with the Casbin
// authorization library. Roles form a hierarchy (admin > operator >
// viewer) and decisions are cached per subject:object:action.
//
// # Architecture
//
// Authorization runs after authentication:
//
//	Request -> auth.Authenticate -> authz.AuthorizeRequest -> Handler
//	               |                       |
//	          validate JWT            Enforce (Casbin)
//	          (internal/auth)         (this package)
//
// The authenticated subject is the account email from the JWT claims; its
// role claim is the Casbin role. Tokens without a role fall back to the
// configured default role (viewer).
//
// # RBAC Model
//
// The embedded model uses role inheritance with keyMatch2, so policy
// objects can name path segments (:venueID) and subtree wildcards:
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[role_definition]
//	g = _, _
//
//	[policy_effect]
//	e = some(where (p.eft == allow))
//
//	[matchers]
//	m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act
//
// # Policy
//
// The embedded policy grants viewers read access to scores and venues,
// operators additionally per-venue transaction history, and admins
// everything under /api/v1 including the admin surface (reset, DLQ).
// Actions are "read", "write", and "delete", derived from the HTTP method.
//
// A file-based policy can replace the embedded one via EnforcerConfig
// (PolicyPath, with optional auto-reload) for deployments that need custom
// rules.
//
// # Usage
//
//	enforcer, err := authz.NewEnforcer(nil)
//	if err != nil {
//	    return err
//	}
//	defer enforcer.Close()
//
//	mw := authz.NewMiddleware(enforcer, cfg.Security.AuthMode)
//	r.Get("/api/v1/scores", authMW.Authenticate(mw.AuthorizeRequest(h.ListScores)))
package authz
