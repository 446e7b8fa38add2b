// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scorecache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/config"
	"github.com/tomtom215/venuepulse/internal/models"
)

// ErrNotFound is returned when no snapshot exists for a venue.
var ErrNotFound = errors.New("score not found")

// Backend names accepted by NewStore.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Store is the score snapshot store shared by the scoring worker (writes)
// and the API and WebSocket layers (reads).
//
// Implementations must be safe for concurrent use. Get and List return
// copies of the stored snapshots.
type Store interface {
	// Put stores or replaces the snapshot for score.VenueID. Snapshots
	// whose UpdatedAt predates the most recent Clear are silently
	// dropped: they describe state the clear wiped, and a slow write
	// racing a reset must not resurrect it.
	Put(ctx context.Context, score *models.VenueScore) error

	// Get returns the snapshot for one venue, or ErrNotFound.
	Get(ctx context.Context, venueID uuid.UUID) (*models.VenueScore, error)

	// List returns every snapshot, sorted by venue name for stable
	// map rendering.
	List(ctx context.Context) ([]*models.VenueScore, error)

	// Delete removes the snapshot for one venue. Deleting a missing
	// venue is not an error.
	Delete(ctx context.Context, venueID uuid.UUID) error

	// Clear removes every snapshot and sets the floor Put checks
	// against. The admin reset calls this.
	Clear(ctx context.Context) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// NewStore creates the configured score snapshot store.
// An empty backend selects memory.
func NewStore(cfg *config.ScoreCacheConfig) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("score cache config required")
	}

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unknown score cache backend %q (expected %q or %q)",
			cfg.Backend, BackendMemory, BackendRedis)
	}
}
