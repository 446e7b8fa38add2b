// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/models"
	"github.com/tomtom215/venuepulse/internal/scorecache"
)

// listErrorStore fails List, simulating an unreachable Redis backend.
type listErrorStore struct {
	err error
}

func (s *listErrorStore) Put(_ context.Context, _ *models.VenueScore) error { return nil }
func (s *listErrorStore) Get(_ context.Context, _ uuid.UUID) (*models.VenueScore, error) {
	return nil, scorecache.ErrNotFound
}
func (s *listErrorStore) List(_ context.Context) ([]*models.VenueScore, error) {
	return nil, s.err
}
func (s *listErrorStore) Delete(_ context.Context, _ uuid.UUID) error { return nil }
func (s *listErrorStore) Clear(_ context.Context) error               { return nil }
func (s *listErrorStore) Ping(_ context.Context) error                { return nil }
func (s *listErrorStore) Close() error                                { return nil }

func TestNewRefresher_Validation(t *testing.T) {
	scores := scorecache.NewMemoryStore()
	engine := NewEngine(0)

	t.Run("missing score store", func(t *testing.T) {
		_, err := NewRefresher(nil, engine, nil, time.Second)
		if err == nil || err.Error() != "score store required" {
			t.Errorf("NewRefresher() error = %v, want %q", err, "score store required")
		}
	})

	t.Run("missing engine", func(t *testing.T) {
		_, err := NewRefresher(scores, nil, nil, time.Second)
		if err == nil || err.Error() != "engine required" {
			t.Errorf("NewRefresher() error = %v, want %q", err, "engine required")
		}
	})

	t.Run("zero interval defaults", func(t *testing.T) {
		r, err := NewRefresher(scores, engine, nil, 0)
		if err != nil {
			t.Fatalf("NewRefresher() error = %v", err)
		}
		if r.interval != DefaultRefreshInterval {
			t.Errorf("interval = %v, want %v", r.interval, DefaultRefreshInterval)
		}
	})

	t.Run("nil broadcaster allowed", func(t *testing.T) {
		if _, err := NewRefresher(scores, engine, nil, time.Second); err != nil {
			t.Errorf("NewRefresher() with nil broadcaster error = %v", err)
		}
	})
}

func TestRefresher_BroadcastsDecayedScores(t *testing.T) {
	scores := scorecache.NewMemoryStore()
	engine := NewEngine(15 * time.Minute)
	broadcaster := &capturingBroadcaster{}
	ctx := context.Background()

	// Last event one tau ago: the stored score of 50 has silently
	// decayed to 18 by now.
	lastEvent := time.Now().UTC().Add(-15 * time.Minute)
	if err := scores.Put(ctx, &models.VenueScore{
		VenueID:          uuid.New(),
		Name:             "Joe Kool's",
		Capacity:         100,
		CurrentOccupancy: 50,
		Score:            50,
		LastEventAt:      lastEvent,
		UpdatedAt:        lastEvent,
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	r, err := NewRefresher(scores, engine, broadcaster, time.Second)
	if err != nil {
		t.Fatalf("NewRefresher() error = %v", err)
	}

	r.refresh(ctx)

	snaps := broadcaster.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("Broadcasts = %d, want 1", len(snaps))
	}
	if snaps[0].Score != 18 {
		t.Errorf("Broadcast score = %d, want 18", snaps[0].Score)
	}
	if !snaps[0].LastEventAt.Equal(lastEvent) {
		t.Errorf("Broadcast LastEventAt = %v, want %v", snaps[0].LastEventAt, lastEvent)
	}
}

func TestRefresher_BroadcastsZeroCrossingOnce(t *testing.T) {
	scores := scorecache.NewMemoryStore()
	engine := NewEngine(15 * time.Minute)
	broadcaster := &capturingBroadcaster{}
	ctx := context.Background()

	// Three hours of silence: the score computes to zero, but the store
	// still holds the last event-time value.
	lastEvent := time.Now().UTC().Add(-3 * time.Hour)
	venueID := uuid.New()
	if err := scores.Put(ctx, &models.VenueScore{
		VenueID:          venueID,
		Name:             "Aeolian Hall",
		Capacity:         100,
		CurrentOccupancy: 50,
		Score:            18,
		LastEventAt:      lastEvent,
		UpdatedAt:        lastEvent,
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	r, err := NewRefresher(scores, engine, broadcaster, time.Second)
	if err != nil {
		t.Fatalf("NewRefresher() error = %v", err)
	}

	// First pass reports the venue going dark.
	r.refresh(ctx)
	snaps := broadcaster.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("Broadcasts after first pass = %d, want 1", len(snaps))
	}
	if snaps[0].Score != 0 {
		t.Errorf("Broadcast score = %d, want 0", snaps[0].Score)
	}

	stored, err := scores.Get(ctx, venueID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Score != 0 {
		t.Errorf("Stored score after zero crossing = %d, want 0", stored.Score)
	}

	// Settled at zero: later passes stay quiet.
	r.refresh(ctx)
	if got := len(broadcaster.Snapshots()); got != 1 {
		t.Errorf("Broadcasts after second pass = %d, want 1 (settled venue must not rebroadcast)", got)
	}
}

// clearDuringListStore fires Clear after handing out the snapshot list,
// landing a reset in the window between the refresher's read and its
// zero-crossing write-back.
type clearDuringListStore struct {
	scorecache.Store
	cleared bool
}

func (s *clearDuringListStore) List(ctx context.Context) ([]*models.VenueScore, error) {
	snaps, err := s.Store.List(ctx)
	if err == nil && !s.cleared {
		s.cleared = true
		if clearErr := s.Store.Clear(ctx); clearErr != nil {
			return nil, clearErr
		}
	}
	return snaps, err
}

// TestRefresher_WriteBackCannotOutliveReset pins the write-back against
// the store's Clear floor: the snapshot keeps its pre-reset apply time,
// so a Put racing a reset is dropped instead of resurrecting wiped state.
func TestRefresher_WriteBackCannotOutliveReset(t *testing.T) {
	memory := scorecache.NewMemoryStore()
	store := &clearDuringListStore{Store: memory}
	engine := NewEngine(15 * time.Minute)
	ctx := context.Background()

	lastEvent := time.Now().UTC().Add(-3 * time.Hour)
	venueID := uuid.New()
	if err := memory.Put(ctx, &models.VenueScore{
		VenueID:          venueID,
		Name:             "Call the Office",
		Capacity:         100,
		CurrentOccupancy: 50,
		Score:            18,
		LastEventAt:      lastEvent,
		UpdatedAt:        lastEvent,
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	r, err := NewRefresher(store, engine, nil, time.Second)
	if err != nil {
		t.Fatalf("NewRefresher() error = %v", err)
	}

	// The pass lists one stale snapshot, a reset clears the store, and
	// the zero-crossing write-back arrives with a pre-reset timestamp.
	r.refresh(ctx)

	snaps, err := memory.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("Snapshots after reset = %d, want 0 (write-back must not resurrect wiped state)", len(snaps))
	}
}

// TestRefresher_WriteBackPreservesApplyTime guards the UpdatedAt
// semantics the floor depends on: the refresher reports decay, it does
// not apply events, so it never advances a snapshot's apply timestamp.
func TestRefresher_WriteBackPreservesApplyTime(t *testing.T) {
	scores := scorecache.NewMemoryStore()
	engine := NewEngine(15 * time.Minute)
	ctx := context.Background()

	lastEvent := time.Now().UTC().Add(-3 * time.Hour)
	venueID := uuid.New()
	if err := scores.Put(ctx, &models.VenueScore{
		VenueID:          venueID,
		Name:             "Norma Jean's",
		Capacity:         100,
		CurrentOccupancy: 50,
		Score:            18,
		LastEventAt:      lastEvent,
		UpdatedAt:        lastEvent,
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	r, err := NewRefresher(scores, engine, nil, time.Second)
	if err != nil {
		t.Fatalf("NewRefresher() error = %v", err)
	}
	r.refresh(ctx)

	stored, err := scores.Get(ctx, venueID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Score != 0 {
		t.Errorf("Stored score after zero crossing = %d, want 0", stored.Score)
	}
	if !stored.UpdatedAt.Equal(lastEvent) {
		t.Errorf("Stored UpdatedAt = %v, want %v (write-back must not restamp the apply time)", stored.UpdatedAt, lastEvent)
	}
}

func TestRefresher_SkipsSettledZeroes(t *testing.T) {
	scores := scorecache.NewMemoryStore()
	engine := NewEngine(15 * time.Minute)
	broadcaster := &capturingBroadcaster{}
	ctx := context.Background()

	if err := scores.Put(ctx, &models.VenueScore{
		VenueID:          uuid.New(),
		Name:             "Empty Hall",
		Capacity:         200,
		CurrentOccupancy: 0,
		Score:            0,
		LastEventAt:      time.Now().UTC().Add(-time.Hour),
		UpdatedAt:        time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	r, err := NewRefresher(scores, engine, broadcaster, time.Second)
	if err != nil {
		t.Fatalf("NewRefresher() error = %v", err)
	}

	r.refresh(ctx)

	if got := len(broadcaster.Snapshots()); got != 0 {
		t.Errorf("Broadcasts = %d, want 0 for a settled zero", got)
	}
}

func TestRefresher_ListErrorTolerated(t *testing.T) {
	broadcaster := &capturingBroadcaster{}
	r, err := NewRefresher(&listErrorStore{err: errors.New("redis unreachable")}, NewEngine(0), broadcaster, time.Second)
	if err != nil {
		t.Fatalf("NewRefresher() error = %v", err)
	}

	// Must log and move on; the next tick retries.
	r.refresh(context.Background())

	if got := len(broadcaster.Snapshots()); got != 0 {
		t.Errorf("Broadcasts = %d, want 0 when List fails", got)
	}
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	scores := scorecache.NewMemoryStore()
	engine := NewEngine(15 * time.Minute)
	broadcaster := &capturingBroadcaster{}
	ctx, cancel := context.WithCancel(context.Background())

	now := time.Now().UTC()
	if err := scores.Put(ctx, &models.VenueScore{
		VenueID:          uuid.New(),
		Name:             "Joe Kool's",
		Capacity:         100,
		CurrentOccupancy: 50,
		Score:            50,
		LastEventAt:      now,
		UpdatedAt:        now,
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	r, err := NewRefresher(scores, engine, broadcaster, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewRefresher() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()

	// Let a few ticks land, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if got := len(broadcaster.Snapshots()); got < 1 {
		t.Errorf("Broadcasts = %d, want >= 1", got)
	}
}
