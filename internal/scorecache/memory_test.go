// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scorecache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/venuepulse/internal/models"
)

func testScore(name string, score int) *models.VenueScore {
	return &models.VenueScore{
		VenueID:          uuid.New(),
		Name:             name,
		Latitude:         42.9849,
		Longitude:        -81.2453,
		Capacity:         150,
		CurrentOccupancy: 45,
		Score:            score,
		LastEventAt:      time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	snapshot := testScore("Joe Kool's", 58)

	if err := store.Put(context.Background(), snapshot); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(context.Background(), snapshot.VenueID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Name != "Joe Kool's" {
		t.Errorf("Expected name Joe Kool's, got %q", got.Name)
	}
	if got.Score != 58 {
		t.Errorf("Expected score 58, got %d", got.Score)
	}
	if got.CurrentOccupancy != 45 {
		t.Errorf("Expected occupancy 45, got %d", got.CurrentOccupancy)
	}
}

func TestMemoryStore_PutNil(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Put(context.Background(), nil); err == nil {
		t.Error("Expected error for nil score, got nil")
	}
}

func TestMemoryStore_PutMissingVenueID(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	snapshot := testScore("No ID", 10)
	snapshot.VenueID = uuid.Nil

	if err := store.Put(context.Background(), snapshot); err == nil {
		t.Error("Expected error for missing venue ID, got nil")
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	snapshot := testScore("Copy Venue", 40)
	if err := store.Put(context.Background(), snapshot); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	first, err := store.Get(context.Background(), snapshot.VenueID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	first.Score = 99

	second, err := store.Get(context.Background(), snapshot.VenueID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if second.Score != 40 {
		t.Errorf("Expected stored score 40 unaffected by caller mutation, got %d", second.Score)
	}
}

func TestMemoryStore_PutReplaces(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	snapshot := testScore("Replace Venue", 30)
	if err := store.Put(context.Background(), snapshot); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	snapshot.Score = 75
	if err := store.Put(context.Background(), snapshot); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(context.Background(), snapshot.VenueID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Score != 75 {
		t.Errorf("Expected replaced score 75, got %d", got.Score)
	}

	scores, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(scores) != 1 {
		t.Errorf("Expected 1 snapshot after replace, got %d", len(scores))
	}
}

func TestMemoryStore_List_SortedByName(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	for _, name := range []string{"The Ceeps", "Barney's", "Molly Bloom's"} {
		if err := store.Put(context.Background(), testScore(name, 50)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	scores, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(scores))
	}

	expected := []string{"Barney's", "Molly Bloom's", "The Ceeps"}
	for i, name := range expected {
		if scores[i].Name != name {
			t.Errorf("Expected scores[%d] = %q, got %q", i, name, scores[i].Name)
		}
	}
}

func TestMemoryStore_List_Empty(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	scores, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("Expected empty list, got %d snapshots", len(scores))
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	snapshot := testScore("Doomed Venue", 20)
	if err := store.Put(context.Background(), snapshot); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Delete(context.Background(), snapshot.VenueID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := store.Get(context.Background(), snapshot.VenueID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again must not fail.
	if err := store.Delete(context.Background(), snapshot.VenueID); err != nil {
		t.Errorf("Expected idempotent delete, got %v", err)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	for i := 0; i < 3; i++ {
		if err := store.Put(context.Background(), testScore("Venue", 10*i)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	scores, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("Expected empty store after clear, got %d snapshots", len(scores))
	}
}

// A snapshot write that raced a reset carries pre-clear state; the
// floor must keep it out of the cleared store.
func TestMemoryStore_Clear_FloorsStaleWrite(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stale := testScore("Joe Kool's", 58)
	stale.UpdatedAt = time.Now().UTC().Add(-time.Minute)
	if err := store.Put(ctx, stale); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.Get(ctx, stale.VenueID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stale snapshot survived clear: err = %v, want ErrNotFound", err)
	}

	fresh := testScore("The Ceeps", 12)
	fresh.UpdatedAt = time.Now().UTC()
	if err := store.Put(ctx, fresh); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.Get(ctx, fresh.VenueID); err != nil {
		t.Errorf("Fresh snapshot rejected by floor: %v", err)
	}

	// Ledger rebuilds may write snapshots with no apply timestamp yet;
	// those always pass.
	rebuilt := testScore("Barney's", 0)
	rebuilt.UpdatedAt = time.Time{}
	if err := store.Put(ctx, rebuilt); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.Get(ctx, rebuilt.VenueID); err != nil {
		t.Errorf("Zero-timestamp snapshot rejected by floor: %v", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	venueID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(score int) {
			defer wg.Done()
			snapshot := testScore("Busy Venue", score)
			snapshot.VenueID = venueID
			_ = store.Put(context.Background(), snapshot)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.Get(context.Background(), venueID)
			_, _ = store.List(context.Background())
		}()
	}
	wg.Wait()

	got, err := store.Get(context.Background(), venueID)
	if err != nil {
		t.Fatalf("Get after concurrent writes failed: %v", err)
	}
	if got.Score < 0 || got.Score > 9 {
		t.Errorf("Expected one of the written scores, got %d", got.Score)
	}
}

func TestMemoryStore_PingAndClose(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Expected nil Ping, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Expected nil Close, got %v", err)
	}
}
