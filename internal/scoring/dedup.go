// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/venuepulse/internal/cache"
	"github.com/tomtom215/venuepulse/internal/config"
	"github.com/tomtom215/venuepulse/internal/logging"
)

// Dedup store backends.
const (
	DedupBackendMemory = "memory"
	DedupBackendBadger = "badger"
)

const (
	// badgerDedupKeyPrefix namespaces nonce keys inside the Badger store.
	badgerDedupKeyPrefix = "dedup:"

	// badgerGCInterval is how often the value log garbage collector runs.
	badgerGCInterval = 5 * time.Minute
)

// Deduplicator tracks (venue_id, nonce) keys over the dedup window.
//
// IsDuplicate both checks and records: the first call for a key returns
// false and marks it seen, every call inside the window after that
// returns true. This is intentional; the worker relies on check-and-set
// being one operation so two redeliveries racing each other cannot both
// apply.
type Deduplicator interface {
	IsDuplicate(ctx context.Context, key string) (bool, error)

	// Forget releases a single key marked by IsDuplicate. The worker
	// calls it before nacking an event that failed after the mark, so
	// the redelivery is not swallowed as a duplicate.
	Forget(ctx context.Context, key string) error

	// Clear forgets every tracked key. The reset controller calls this
	// so nonces from a wiped simulation run are accepted again if the
	// generator reuses them.
	Clear(ctx context.Context) error

	// StartCleanup launches the backend's maintenance loop (expired
	// entry sweeps for memory, value log GC for Badger) and returns
	// immediately. The loop stops when ctx is canceled.
	StartCleanup(ctx context.Context)

	Close() error
}

// NewDeduplicator builds the configured dedup backend.
//
// The memory backend loses its window on restart, leaving JetStream's
// duplicate window as the only replay guard until it refills. The badger
// backend persists seen nonces across restarts at the cost of a disk
// write per event.
func NewDeduplicator(cfg *config.DedupStoreConfig, window time.Duration, maxEntries int) (Deduplicator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("dedup store config required")
	}

	switch cfg.Backend {
	case "", DedupBackendMemory:
		return NewMemoryDeduplicator(maxEntries, window), nil
	case DedupBackendBadger:
		if cfg.Path == "" {
			return nil, fmt.Errorf("dedup store path required for badger backend")
		}
		return NewBadgerDeduplicator(cfg.Path, window)
	default:
		return nil, fmt.Errorf("unknown dedup store backend %q (want %q or %q)",
			cfg.Backend, DedupBackendMemory, DedupBackendBadger)
	}
}

// MemoryDeduplicator tracks nonces in a bounded TTL LRU. Exact matching,
// no false positives: a unique event is never wrongly dropped.
type MemoryDeduplicator struct {
	cache  *cache.LRUCache
	window time.Duration
}

// NewMemoryDeduplicator creates an in-memory deduplicator.
// Non-positive maxEntries or window fall back to safe defaults.
func NewMemoryDeduplicator(maxEntries int, window time.Duration) *MemoryDeduplicator {
	if maxEntries <= 0 {
		maxEntries = 100_000
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &MemoryDeduplicator{
		cache:  cache.NewLRUCache(maxEntries, window),
		window: window,
	}
}

// IsDuplicate implements Deduplicator. Never errors.
func (d *MemoryDeduplicator) IsDuplicate(_ context.Context, key string) (bool, error) {
	return d.cache.IsDuplicate(key), nil
}

// Forget implements Deduplicator. Never errors.
func (d *MemoryDeduplicator) Forget(_ context.Context, key string) error {
	d.cache.Remove(key)
	return nil
}

// Clear implements Deduplicator. Never errors.
func (d *MemoryDeduplicator) Clear(_ context.Context) error {
	d.cache.Clear()
	return nil
}

// StartCleanup sweeps expired entries at half the window interval, the
// same cadence the LRU's TTL math assumes.
func (d *MemoryDeduplicator) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.window / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.cache.CleanupExpired()
			}
		}
	}()
}

// Entries returns the current number of tracked keys.
func (d *MemoryDeduplicator) Entries() int {
	return d.cache.Len()
}

// Close implements Deduplicator. No resources to release.
func (d *MemoryDeduplicator) Close() error {
	return nil
}

// BadgerDeduplicator persists seen nonces in an embedded Badger store so
// the dedup window survives restarts. Keys carry a TTL equal to the
// window; Badger hides expired keys from reads.
type BadgerDeduplicator struct {
	db     *badger.DB
	window time.Duration
}

// NewBadgerDeduplicator opens (or creates) the Badger store at path.
func NewBadgerDeduplicator(path string, window time.Duration) (*BadgerDeduplicator, error) {
	if window <= 0 {
		window = 15 * time.Minute
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for dedup: %w", err)
	}

	return &BadgerDeduplicator{db: db, window: window}, nil
}

// IsDuplicate implements Deduplicator. The read and the mark share one
// transaction, so concurrent redeliveries of the same key serialize on
// Badger's conflict detection instead of both slipping through.
func (d *BadgerDeduplicator) IsDuplicate(_ context.Context, key string) (bool, error) {
	seen := false
	k := []byte(badgerDedupKeyPrefix + key)

	err := d.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		switch {
		case err == nil:
			seen = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			entry := badger.NewEntry(k, []byte{1}).WithTTL(d.window)
			return txn.SetEntry(entry)
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return seen, nil
}

// Forget implements Deduplicator. Deleting a key that was never marked
// is a no-op, matching the memory backend.
func (d *BadgerDeduplicator) Forget(_ context.Context, key string) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerDedupKeyPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("forget dedup key: %w", err)
	}
	return nil
}

// Clear drops every key under the dedup prefix. Badger blocks writers
// while the drop runs, which is fine: the only writer is the worker and
// it is parked behind the paused state store whenever Clear is called.
func (d *BadgerDeduplicator) Clear(_ context.Context) error {
	if err := d.db.DropPrefix([]byte(badgerDedupKeyPrefix)); err != nil {
		return fmt.Errorf("clear dedup store: %w", err)
	}
	return nil
}

// StartCleanup runs Badger's value log garbage collector periodically.
// Expired nonce keys are reclaimed here; ErrNoRewrite just means there
// was nothing worth compacting yet.
func (d *BadgerDeduplicator) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(badgerGCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := d.db.RunValueLogGC(0.5)
				if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					logging.Warn().Err(err).Msg("DEDUP: Badger value log GC failed")
				}
			}
		}
	}()
}

// Close releases the Badger store.
func (d *BadgerDeduplicator) Close() error {
	return d.db.Close()
}
