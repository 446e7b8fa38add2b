// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestVirtualHour(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		compress float64
		want     int
	}{
		{"start of evening", 0, 42, 19},
		// +1s guards the duration truncation at the hour boundary
		{"one virtual hour at 42x", time.Hour/42 + time.Second, 42, 20},
		{"peak at 42x", 4*time.Hour/42 + time.Second, 42, 23},
		{"clamped past close", time.Hour, 42, 25},
		{"realtime no compression", 2 * time.Hour, 1, 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := virtualHour(tt.elapsed, tt.compress); got != tt.want {
				t.Errorf("virtualHour(%v, %v) = %d, want %d", tt.elapsed, tt.compress, got, tt.want)
			}
		})
	}
}

func TestFridayCurveCoversEvening(t *testing.T) {
	for hour := virtualHourStart; hour < virtualHourEnd; hour++ {
		r, ok := fridayCurve[hour]
		if !ok {
			t.Fatalf("no curve entry for virtual hour %d", hour)
		}
		if r.lo < 0 || r.hi < r.lo {
			t.Errorf("hour %d has invalid range [%d, %d]", hour, r.lo, r.hi)
		}
	}
}

func TestTrafficModelRespectsCapacity(t *testing.T) {
	venue := AgentVenue{ID: "v", Name: "test", Capacity: 50, Secret: "s", Personality: PersonalityPopular}
	model := newTrafficModel(venue, 1)

	// Drive the peak hour hard; occupancy must stay within [0, capacity]
	for i := 0; i < 500; i++ {
		model.nextDelta(22)
		if model.Occupancy() < 0 {
			t.Fatalf("occupancy went negative: %d", model.Occupancy())
		}
		if model.Occupancy() > venue.Capacity {
			t.Fatalf("occupancy %d exceeded capacity %d", model.Occupancy(), venue.Capacity)
		}
	}
}

func TestTrafficModelFillsDuringPeak(t *testing.T) {
	venue := AgentVenue{ID: "v", Name: "test", Capacity: 200, Secret: "s", Personality: PersonalityCasual}
	model := newTrafficModel(venue, 42)

	for i := 0; i < 30; i++ {
		model.nextDelta(22)
	}
	if model.Occupancy() == 0 {
		t.Error("thirty peak-hour ticks should have produced some occupancy")
	}
}

func TestTrafficModelDeterministicWithSeed(t *testing.T) {
	venue := AgentVenue{ID: "v", Name: "test", Capacity: 100, Secret: "s", Personality: PersonalityCasual}
	a := newTrafficModel(venue, 7)
	b := newTrafficModel(venue, 7)

	for i := 0; i < 50; i++ {
		if da, db := a.nextDelta(21), b.nextDelta(21); da != db {
			t.Fatalf("tick %d diverged: %d vs %d", i, da, db)
		}
	}
}

func TestPersonalityScale(t *testing.T) {
	if personalityScale(PersonalityDive, 22) >= personalityScale(PersonalityCasual, 22) {
		t.Error("dive bars should run below the casual baseline")
	}
	if personalityScale(PersonalityPopular, 22) <= personalityScale(PersonalityCasual, 22) {
		t.Error("popular venues should run above the casual baseline")
	}
	early := personalityScale(PersonalityLateNight, 21)
	late := personalityScale(PersonalityLateNight, 24)
	if late <= early {
		t.Error("late-night venues should scale up after midnight")
	}
}

func TestLoadVenues(t *testing.T) {
	t.Run("empty path uses built-in set", func(t *testing.T) {
		venues, err := loadVenues("")
		if err != nil {
			t.Fatalf("loadVenues: %v", err)
		}
		if len(venues) != 5 {
			t.Errorf("expected 5 built-in venues, got %d", len(venues))
		}
		for _, v := range venues {
			if v.Secret == "" || v.Capacity <= 0 {
				t.Errorf("venue %q missing secret or capacity", v.Name)
			}
		}
	})

	t.Run("reads JSON file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "venues.json")
		content := `[{"id":"11111111-1111-1111-1111-111111111111","name":"Test Bar","capacity":80,"secret":"hunter2"}]`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		venues, err := loadVenues(path)
		if err != nil {
			t.Fatalf("loadVenues: %v", err)
		}
		if len(venues) != 1 {
			t.Fatalf("expected 1 venue, got %d", len(venues))
		}
		if venues[0].Personality != PersonalityCasual {
			t.Errorf("missing personality should default to casual, got %q", venues[0].Personality)
		}
	})

	t.Run("rejects empty set", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "venues.json")
		if err := os.WriteFile(path, []byte(`[]`), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := loadVenues(path); err == nil {
			t.Error("expected error for empty venue set")
		}
	})

	t.Run("rejects missing file", func(t *testing.T) {
		if _, err := loadVenues("/nonexistent/venues.json"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
