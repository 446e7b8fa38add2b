// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// AgentVenue is one simulated venue: identity, signing key, and the
// personality that shapes its Friday-night curve.
type AgentVenue struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	Secret      string `json:"secret"`
	Personality string `json:"personality"`
}

// Personalities scale the base arrival curve per venue character.
const (
	PersonalityPopular   = "popular"    // busy early, stays busy
	PersonalityCasual    = "casual"     // tracks the base curve
	PersonalityLateNight = "late_night" // ramps after midnight
	PersonalityDive      = "dive"       // steady regulars, low variance
)

// defaultVenues is the built-in set matching the server's demo seed.
// IDs and secrets line up with database.SeedDemoVenues so the agent
// works against a freshly seeded server with no discovery step.
func defaultVenues() []AgentVenue {
	return []AgentVenue{
		{ID: "00000000-0000-0000-0000-000000000001", Name: "Joe Kool's", Capacity: 150, Secret: "secret_joe", Personality: PersonalityPopular},
		{ID: "00000000-0000-0000-0000-000000000002", Name: "Barney's", Capacity: 200, Secret: "secret_barney", Personality: PersonalityCasual},
		{ID: "00000000-0000-0000-0000-000000000003", Name: "Molly Bloom's", Capacity: 120, Secret: "secret_molly", Personality: PersonalityLateNight},
		{ID: "00000000-0000-0000-0000-000000000004", Name: "The Ceeps", Capacity: 300, Secret: "secret_ceeps", Personality: PersonalityPopular},
		{ID: "00000000-0000-0000-0000-000000000005", Name: "Toboggan Brewing Co.", Capacity: 180, Secret: "secret_toboggan", Personality: PersonalityDive},
	}
}

// loadVenues reads a venue set from a JSON file, falling back to the
// built-in seed set when path is empty.
func loadVenues(path string) ([]AgentVenue, error) {
	if path == "" {
		return defaultVenues(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read venues file: %w", err)
	}
	var venues []AgentVenue
	if err := json.Unmarshal(data, &venues); err != nil {
		return nil, fmt.Errorf("parse venues file: %w", err)
	}
	if len(venues) == 0 {
		return nil, fmt.Errorf("venues file %s contains no venues", path)
	}
	for i := range venues {
		if venues[i].Personality == "" {
			venues[i].Personality = PersonalityCasual
		}
		if venues[i].Capacity <= 0 {
			return nil, fmt.Errorf("venue %q has no capacity", venues[i].Name)
		}
	}
	return venues, nil
}

// hourlyRange holds the base arrivals-per-tick range for one virtual hour.
type hourlyRange struct{ lo, hi int }

// fridayCurve maps virtual hour (19..25, where 24 is midnight and 25 is
// 1am) to base arrival ranges. Quiet open, ramp from 20:00, peak
// 22:00-23:00, decay after last call.
var fridayCurve = map[int]hourlyRange{
	19: {2, 6},
	20: {8, 15},
	21: {15, 25},
	22: {25, 40},
	23: {20, 35},
	24: {10, 20},
	25: {2, 8},
}

// virtualHourStart is where the simulated evening begins.
const virtualHourStart = 19

// virtualHourEnd is one past the final simulated hour.
const virtualHourEnd = 26

// virtualHour converts elapsed real time to the simulated clock hour.
// The compression factor is how many virtual seconds pass per real
// second; 42x turns the 7-hour evening into 10 real minutes.
func virtualHour(elapsed time.Duration, compress float64) int {
	virtualSeconds := elapsed.Seconds() * compress
	hour := virtualHourStart + int(virtualSeconds/3600)
	if hour >= virtualHourEnd {
		return virtualHourEnd - 1
	}
	return hour
}

// personalityScale returns the arrival multiplier for a venue at the
// given virtual hour.
func personalityScale(personality string, hour int) float64 {
	switch personality {
	case PersonalityPopular:
		if hour <= 21 {
			return 1.4 // fills up early
		}
		return 1.5
	case PersonalityLateNight:
		if hour >= 24 {
			return 1.5 * 1.2 // the crowd migrates here after midnight
		}
		return 1.2
	case PersonalityDive:
		return 0.7
	default: // casual
		return 1.0
	}
}

// surgeProbability is the per-tick chance of a group arrival.
const surgeProbability = 0.05

// trafficModel generates per-tick occupancy deltas for one venue.
// It tracks its own estimate of the venue's occupancy so departures can
// scale with how crowded the venue is; the server's ledger is the truth,
// this is just the generator's belief.
type trafficModel struct {
	venue     AgentVenue
	rng       *rand.Rand
	occupancy int
}

func newTrafficModel(venue AgentVenue, seed int64) *trafficModel {
	return &trafficModel{
		venue: venue,
		rng:   rand.New(rand.NewSource(seed)), //nolint:gosec // simulation, not crypto
	}
}

// nextDelta produces the signed occupancy change for one tick at the
// given virtual hour. Positive is net arrivals, negative net departures.
func (m *trafficModel) nextDelta(hour int) int {
	r, ok := fridayCurve[hour]
	if !ok {
		r = fridayCurve[virtualHourEnd-1]
	}

	base := r.lo
	if span := r.hi - r.lo; span > 0 {
		base += m.rng.Intn(span + 1)
	}
	arrivals := int(float64(base) * personalityScale(m.venue.Personality, hour))

	// Dive bars run steadier: halve the swing around the midpoint.
	if m.venue.Personality == PersonalityDive {
		mid := (r.lo + r.hi) / 2
		arrivals = (arrivals + mid) / 2
	}

	// Occasional group arrival
	if m.rng.Float64() < surgeProbability {
		arrivals += 10 + m.rng.Intn(16)
	}

	// Departures scale with crowding; after midnight people head home
	// (or to the late-night spots)
	fill := float64(m.occupancy) / float64(m.venue.Capacity)
	departRate := 0.05 + 0.25*fill
	if hour >= 24 && m.venue.Personality != PersonalityLateNight {
		departRate *= 1.5
	}
	departures := int(float64(m.occupancy) * departRate)
	if departures > 0 {
		departures = departures/2 + m.rng.Intn(departures/2+1)
	}

	// A full venue turns arrivals away
	headroom := m.venue.Capacity - m.occupancy
	if arrivals > headroom {
		arrivals = headroom
	}

	delta := arrivals - departures
	if delta < -m.occupancy {
		delta = -m.occupancy
	}

	m.occupancy += delta
	return delta
}

// Occupancy returns the model's current occupancy estimate.
func (m *trafficModel) Occupancy() int {
	return m.occupancy
}
