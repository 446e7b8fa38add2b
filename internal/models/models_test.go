// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		role     string
		expected bool
	}{
		{"viewer", true},
		{"operator", true},
		{"admin", true},
		{"editor", false},
		{"ADMIN", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			if got := IsValidRole(tt.role); got != tt.expected {
				t.Errorf("IsValidRole(%q) = %v, want %v", tt.role, got, tt.expected)
			}
		})
	}
}

// TestVenueSecretNeverSerialized guards against leaking HMAC keys through
// any endpoint that returns venues.
func TestVenueSecretNeverSerialized(t *testing.T) {
	v := Venue{
		ID:        uuid.New(),
		Name:      "Joe Kool's",
		Latitude:  42.9849,
		Longitude: -81.2453,
		Capacity:  150,
		Secret:    "secret_joe",
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "secret_joe") {
		t.Errorf("serialized venue contains the HMAC secret: %s", data)
	}
	if strings.Contains(string(data), "\"secret\"") {
		t.Errorf("serialized venue contains a secret field: %s", data)
	}
}

func TestAPIErrorOmitsEmptyDetails(t *testing.T) {
	e := APIError{Code: "NOT_FOUND", Message: "venue not found"}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "details") {
		t.Errorf("empty details should be omitted, got %s", data)
	}
}
