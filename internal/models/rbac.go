// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package models

// Role constants define the standard roles in the system.
// These align with the Casbin policy definitions in internal/authz.
const (
	// RoleViewer is the default role: read access to scores, venues, and
	// the authenticated user's own profile.
	RoleViewer = "viewer"

	// RoleOperator adds pipeline introspection: transaction ledgers and
	// venue detail beyond the public projections. Inherits viewer.
	RoleOperator = "operator"

	// RoleAdmin has full access including venue registration, reset, and
	// DLQ inspection. Inherits operator.
	RoleAdmin = "admin"
)

// ValidRoles contains all valid role names for validation.
var ValidRoles = []string{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole checks if a role name is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
