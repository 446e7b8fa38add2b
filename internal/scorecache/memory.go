// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scorecache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/models"
)

// MemoryStore keeps snapshots in a mutex-guarded map. It is the default
// backend; contents are lost on restart and rebuilt from the ledger.
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[uuid.UUID]models.VenueScore

	// floor is the time of the last Clear. Put drops snapshots whose
	// UpdatedAt predates it; both are read and written under mu, so a
	// clear and the stale write it supersedes cannot interleave.
	floor time.Time
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scores: make(map[uuid.UUID]models.VenueScore),
	}
}

// Put stores a copy of the snapshot. Snapshots older than the last
// Clear are dropped, not stored.
func (s *MemoryStore) Put(_ context.Context, score *models.VenueScore) error {
	if score == nil {
		return fmt.Errorf("score cannot be nil")
	}
	if score.VenueID == uuid.Nil {
		return fmt.Errorf("score venue ID required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !score.UpdatedAt.IsZero() && score.UpdatedAt.Before(s.floor) {
		return nil
	}
	s.scores[score.VenueID] = *score
	return nil
}

// Get returns a copy of one venue's snapshot, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, venueID uuid.UUID) (*models.VenueScore, error) {
	s.mu.RLock()
	score, ok := s.scores[venueID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return &score, nil
}

// List returns copies of every snapshot, sorted by venue name.
func (s *MemoryStore) List(_ context.Context) ([]*models.VenueScore, error) {
	s.mu.RLock()
	scores := make([]*models.VenueScore, 0, len(s.scores))
	for id := range s.scores {
		score := s.scores[id]
		scores = append(scores, &score)
	}
	s.mu.RUnlock()

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Name != scores[j].Name {
			return scores[i].Name < scores[j].Name
		}
		return scores[i].VenueID.String() < scores[j].VenueID.String()
	})
	return scores, nil
}

// Delete removes one venue's snapshot.
func (s *MemoryStore) Delete(_ context.Context, venueID uuid.UUID) error {
	s.mu.Lock()
	delete(s.scores, venueID)
	s.mu.Unlock()
	return nil
}

// Clear removes every snapshot and floors out writes of older state.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.scores = make(map[uuid.UUID]models.VenueScore)
	s.floor = time.Now().UTC()
	s.mu.Unlock()
	return nil
}

// Ping always succeeds for the in-memory backend.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error {
	return nil
}
