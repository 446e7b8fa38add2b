// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package authz

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupEnforcer creates an enforcer with default config and registers cleanup.
func setupEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	enforcer, err := NewEnforcer(nil)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(func() { enforcer.Close() })
	return enforcer
}

// setupEnforcerWithConfig creates an enforcer with custom config.
func setupEnforcerWithConfig(t *testing.T, config *EnforcerConfig) *Enforcer {
	t.Helper()
	enforcer, err := NewEnforcer(config)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(func() { enforcer.Close() })
	return enforcer
}

// assertEnforce checks that enforcement returns the expected result.
func assertEnforce(t *testing.T, enforcer *Enforcer, subject, object, action string, want bool) {
	t.Helper()
	got, err := enforcer.Enforce(subject, object, action)
	if err != nil {
		t.Errorf("Enforce(%q, %q, %q) error = %v", subject, object, action, err)
		return
	}
	if got != want {
		t.Errorf("Enforce(%q, %q, %q) = %v, want %v", subject, object, action, got, want)
	}
}

func TestEnforcer_Creation(t *testing.T) {
	tests := []struct {
		name   string
		config *EnforcerConfig
	}{
		{
			name:   "nil config uses defaults",
			config: nil,
		},
		{
			name: "custom config",
			config: &EnforcerConfig{
				DefaultRole:  "viewer",
				CacheEnabled: true,
				CacheTTL:     time.Minute,
			},
		},
		{
			name: "cache disabled",
			config: &EnforcerConfig{
				DefaultRole: "viewer",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enforcer, err := NewEnforcer(tt.config)
			if err != nil {
				t.Fatalf("NewEnforcer() error = %v", err)
			}
			defer enforcer.Close()

			if enforcer == nil {
				t.Fatal("NewEnforcer() returned nil")
			}
			if len(enforcer.GetPolicy()) == 0 {
				t.Error("Expected embedded policy to be loaded")
			}
		})
	}
}

func TestEnforcer_EmbeddedPolicy(t *testing.T) {
	enforcer := setupEnforcer(t)

	tests := []struct {
		name    string
		subject string
		object  string
		action  string
		want    bool
	}{
		// Viewer permissions
		{"viewer reads scores", "viewer", "/api/v1/scores", "read", true},
		{"viewer reads one score", "viewer", "/api/v1/scores/0d4ee1a8-1a58-4c53-a78a-0c0d50ce5b1c", "read", true},
		{"viewer reads venues", "viewer", "/api/v1/venues", "read", true},
		{"viewer reads one venue", "viewer", "/api/v1/venues/0d4ee1a8-1a58-4c53-a78a-0c0d50ce5b1c", "read", true},
		{"viewer reads own identity", "viewer", "/api/v1/auth/me", "read", true},
		{"viewer cannot read transactions", "viewer", "/api/v1/venues/0d4ee1a8-1a58-4c53-a78a-0c0d50ce5b1c/transactions", "read", false},
		{"viewer cannot create venues", "viewer", "/api/v1/venues", "write", false},
		{"viewer cannot reset", "viewer", "/api/v1/admin/reset", "write", false},
		{"viewer cannot read dlq", "viewer", "/api/v1/admin/dlq", "read", false},

		// Operator permissions (inherits viewer)
		{"operator reads scores", "operator", "/api/v1/scores", "read", true},
		{"operator reads transactions", "operator", "/api/v1/venues/0d4ee1a8-1a58-4c53-a78a-0c0d50ce5b1c/transactions", "read", true},
		{"operator cannot create venues", "operator", "/api/v1/venues", "write", false},
		{"operator cannot reset", "operator", "/api/v1/admin/reset", "write", false},

		// Admin permissions (inherits operator)
		{"admin reads scores", "admin", "/api/v1/scores", "read", true},
		{"admin reads transactions", "admin", "/api/v1/venues/0d4ee1a8-1a58-4c53-a78a-0c0d50ce5b1c/transactions", "read", true},
		{"admin creates venues", "admin", "/api/v1/venues", "write", true},
		{"admin deletes venues", "admin", "/api/v1/venues/0d4ee1a8-1a58-4c53-a78a-0c0d50ce5b1c", "delete", true},
		{"admin resets", "admin", "/api/v1/admin/reset", "write", true},
		{"admin reads dlq", "admin", "/api/v1/admin/dlq", "read", true},

		// Unknown subjects
		{"unknown role denied", "stranger", "/api/v1/scores", "read", false},
		{"empty subject denied", "", "/api/v1/scores", "read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertEnforce(t, enforcer, tt.subject, tt.object, tt.action, tt.want)
		})
	}
}

func TestEnforcer_PathMatching(t *testing.T) {
	enforcer := setupEnforcer(t)

	// keyMatch2 binds :venueID to exactly one path segment; deeper paths
	// must not leak through the single-segment rules.
	assertEnforce(t, enforcer, "viewer", "/api/v1/venues/abc/transactions", "read", false)
	assertEnforce(t, enforcer, "viewer", "/api/v1/venues/abc/def", "read", false)
	assertEnforce(t, enforcer, "viewer", "/api/v1", "read", false)
	assertEnforce(t, enforcer, "admin", "/api/v1/admin/dlq", "read", true)
	assertEnforce(t, enforcer, "admin", "/health", "read", false) // outside the API root
}

func TestEnforcer_EnforceWithRoles(t *testing.T) {
	enforcer := setupEnforcer(t)

	t.Run("role grants access", func(t *testing.T) {
		allowed, err := enforcer.EnforceWithRoles("door@example.com", []string{"operator"}, "/api/v1/scores", "read")
		if err != nil {
			t.Fatalf("EnforceWithRoles() error = %v", err)
		}
		if !allowed {
			t.Error("Expected operator role to grant score reads")
		}
	})

	t.Run("role insufficient", func(t *testing.T) {
		allowed, err := enforcer.EnforceWithRoles("door@example.com", []string{"operator"}, "/api/v1/admin/reset", "write")
		if err != nil {
			t.Fatalf("EnforceWithRoles() error = %v", err)
		}
		if allowed {
			t.Error("Expected operator role to be denied reset")
		}
	})

	t.Run("no roles falls back to default role", func(t *testing.T) {
		allowed, err := enforcer.EnforceWithRoles("bare@example.com", nil, "/api/v1/scores", "read")
		if err != nil {
			t.Fatalf("EnforceWithRoles() error = %v", err)
		}
		if !allowed {
			t.Error("Expected default viewer role to grant score reads")
		}

		allowed, err = enforcer.EnforceWithRoles("bare@example.com", nil, "/api/v1/venues", "write")
		if err != nil {
			t.Fatalf("EnforceWithRoles() error = %v", err)
		}
		if allowed {
			t.Error("Expected default viewer role to be denied venue writes")
		}
	})

	t.Run("no default role denies", func(t *testing.T) {
		noDefault := setupEnforcerWithConfig(t, &EnforcerConfig{DefaultRole: ""})
		allowed, err := noDefault.EnforceWithRoles("bare@example.com", nil, "/api/v1/scores", "read")
		if err != nil {
			t.Fatalf("EnforceWithRoles() error = %v", err)
		}
		if allowed {
			t.Error("Expected denial without roles or default role")
		}
	})

	t.Run("empty role strings skipped", func(t *testing.T) {
		allowed, err := enforcer.EnforceWithRoles("door@example.com", []string{""}, "/api/v1/venues", "write")
		if err != nil {
			t.Fatalf("EnforceWithRoles() error = %v", err)
		}
		if allowed {
			t.Error("Expected empty role to grant nothing")
		}
	})
}

func TestEnforcer_CachedDecisionsStable(t *testing.T) {
	enforcer := setupEnforcerWithConfig(t, &EnforcerConfig{
		DefaultRole:  "viewer",
		CacheEnabled: true,
		CacheTTL:     time.Minute,
	})

	// Repeated checks must return identical results through the cache.
	for i := 0; i < 3; i++ {
		assertEnforce(t, enforcer, "operator", "/api/v1/scores", "read", true)
		assertEnforce(t, enforcer, "operator", "/api/v1/admin/reset", "write", false)
	}
}

func TestEnforcer_RoleHierarchy(t *testing.T) {
	enforcer := setupEnforcer(t)

	roles, err := enforcer.GetRolesForUser("admin")
	if err != nil {
		t.Fatalf("GetRolesForUser() error = %v", err)
	}
	if len(roles) != 1 || roles[0] != "operator" {
		t.Errorf("GetRolesForUser(admin) = %v, want [operator]", roles)
	}

	roles, err = enforcer.GetRolesForUser("operator")
	if err != nil {
		t.Fatalf("GetRolesForUser() error = %v", err)
	}
	if len(roles) != 1 || roles[0] != "viewer" {
		t.Errorf("GetRolesForUser(operator) = %v, want [viewer]", roles)
	}
}

func TestEnforcer_FilePolicy(t *testing.T) {
	tmpDir := t.TempDir()
	policyPath := filepath.Join(tmpDir, "policy.csv")
	policy := "p, auditor, /api/v1/admin/dlq, read\n"
	if err := os.WriteFile(policyPath, []byte(policy), 0o644); err != nil {
		t.Fatalf("Failed to write policy file: %v", err)
	}

	enforcer := setupEnforcerWithConfig(t, &EnforcerConfig{
		PolicyPath:  policyPath,
		DefaultRole: "viewer",
	})

	// The file policy replaces the embedded one entirely.
	assertEnforce(t, enforcer, "auditor", "/api/v1/admin/dlq", "read", true)
	assertEnforce(t, enforcer, "viewer", "/api/v1/scores", "read", false)
}

func TestEnforcer_MissingPolicyPathFallsBack(t *testing.T) {
	enforcer := setupEnforcerWithConfig(t, &EnforcerConfig{
		PolicyPath:  "/nonexistent/policy.csv",
		DefaultRole: "viewer",
	})

	// Nonexistent path means the embedded policy loads instead.
	assertEnforce(t, enforcer, "viewer", "/api/v1/scores", "read", true)
}
