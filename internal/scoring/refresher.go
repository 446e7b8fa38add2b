// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/metrics"
	"github.com/tomtom215/venuepulse/internal/scorecache"
)

// DefaultRefreshInterval is the fallback rebroadcast cadence.
const DefaultRefreshInterval = 15 * time.Second

// Refresher rebroadcasts decayed scores between events.
//
// Without it, a venue that stops sending events freezes at its last
// pushed score on every dashboard: the decay only exists at read time.
// The refresher recomputes each cached snapshot on a fixed interval and
// pushes the result to websocket subscribers, so idle venues visibly
// cool toward zero.
type Refresher struct {
	scores      scorecache.Store
	engine      *Engine
	broadcaster Broadcaster
	interval    time.Duration
}

// NewRefresher creates a refresher. A nil broadcaster is allowed; the
// refresher then only updates the score gauges.
func NewRefresher(scores scorecache.Store, engine *Engine, broadcaster Broadcaster, interval time.Duration) (*Refresher, error) {
	if scores == nil {
		return nil, fmt.Errorf("score store required")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine required")
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	return &Refresher{
		scores:      scores,
		engine:      engine,
		broadcaster: broadcaster,
		interval:    interval,
	}, nil
}

// Run rebroadcasts on the configured interval until ctx is canceled.
// The supervisor tree runs it as a service.
func (r *Refresher) Run(ctx context.Context) error {
	logging.Info().
		Dur("interval", r.interval).
		Msg("REFRESHER: Started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("REFRESHER: Stopped")
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (r *Refresher) String() string {
	return "score-refresher"
}

// refresh recomputes every cached snapshot and broadcasts the result.
func (r *Refresher) refresh(ctx context.Context) {
	snaps, err := r.scores.List(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("REFRESHER: Snapshot list failed")
		return
	}

	now := time.Now().UTC()
	broadcast := 0

	for _, snap := range snaps {
		current := r.engine.SnapshotScore(snap, now)

		// A venue that decayed to zero and was already written at zero
		// has nothing left to report; keep it quiet until its next event.
		if current == 0 && snap.Score == 0 {
			metrics.SetVenueScore(snap.VenueID.String(), current, snap.CurrentOccupancy)
			continue
		}

		snap.Score = current
		metrics.SetVenueScore(snap.VenueID.String(), current, snap.CurrentOccupancy)

		// Persist the zero crossing. List hands out copies, so without
		// this write-back the stored score stays at its last nonzero
		// value and the venue rebroadcasts zero on every pass. The
		// snapshot keeps its original UpdatedAt: that field is the
		// lane's apply timestamp, and restamping it would carry this
		// Put past the store's Clear floor if a reset lands between
		// the List above and here.
		if current == 0 {
			if err := r.scores.Put(ctx, snap); err != nil {
				logging.Warn().
					Err(err).
					Str("venue_id", snap.VenueID.String()).
					Msg("REFRESHER: Snapshot write failed")
			}
		}

		if r.broadcaster != nil {
			r.broadcaster.BroadcastScoreUpdate(snap)
			broadcast++
		}
	}

	metrics.RecordRefreshBroadcast()

	logging.Trace().
		Int("snapshots", len(snaps)).
		Int("broadcast", broadcast).
		Msg("REFRESHER: Pass complete")
}
