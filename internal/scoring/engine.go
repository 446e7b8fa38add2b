// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scoring

import (
	"math"
	"time"

	"github.com/tomtom215/venuepulse/internal/models"
)

// DefaultDecayTau is the fallback decay constant when configuration
// supplies none. With tau at 15 minutes a venue loses half its score
// roughly every 10.4 minutes of silence (tau * ln 2).
const DefaultDecayTau = 15 * time.Minute

// Engine computes venue scores from occupancy, capacity, and elapsed time.
//
// The score is a 0-100 integer:
//
//	utilization = min(1, occupancy / capacity)
//	decay       = exp(-elapsed / tau)
//	score       = clamp(round(100 * utilization * decay), 0, 100)
//
// Over-capacity venues report as full rather than above 100. Engine is
// stateless and safe for concurrent use; the same instance serves the
// worker's hot path, the refresher, and the read API.
type Engine struct {
	tau time.Duration
}

// NewEngine creates an engine with the given decay constant.
// Non-positive values fall back to DefaultDecayTau.
func NewEngine(tau time.Duration) *Engine {
	if tau <= 0 {
		tau = DefaultDecayTau
	}
	return &Engine{tau: tau}
}

// Tau returns the configured decay constant.
func (e *Engine) Tau() time.Duration {
	return e.tau
}

// ComputeScore returns the score for a venue with the given occupancy and
// capacity after elapsed time since its last event.
//
// Edge behavior:
//   - capacity <= 0 or occupancy <= 0 returns 0
//   - negative elapsed (event timestamp ahead of the clock) is treated as 0,
//     so slightly future-dated events score as fresh instead of inflated
func (e *Engine) ComputeScore(occupancy int64, capacity int, elapsed time.Duration) int {
	if capacity <= 0 || occupancy <= 0 {
		return 0
	}

	utilization := float64(occupancy) / float64(capacity)
	if utilization > 1 {
		utilization = 1
	}

	if elapsed < 0 {
		elapsed = 0
	}
	decay := math.Exp(-elapsed.Seconds() / e.tau.Seconds())

	score := math.Round(100 * utilization * decay)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// SnapshotScore recomputes a cached snapshot's score as of now.
//
// Snapshots store occupancy and last event time, not a frozen score:
// the decay term depends on the read clock, so two reads of the same
// snapshot a minute apart return different values. A nil snapshot or one
// that has never seen an event scores 0.
func (e *Engine) SnapshotScore(snap *models.VenueScore, now time.Time) int {
	if snap == nil || snap.LastEventAt.IsZero() {
		return 0
	}
	return e.ComputeScore(snap.CurrentOccupancy, snap.Capacity, now.Sub(snap.LastEventAt))
}
