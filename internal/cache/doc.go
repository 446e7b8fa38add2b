// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package cache provides the in-memory data structures backing the hot
paths of the ingest and scoring pipeline.

Two structures live here:

  - Cache: a thread-safe TTL map. The ingest gateway caches venue
    signing secrets in it so signature verification does not hit DuckDB
    on every event, and the scoring worker caches venue metadata
    (capacity, name) the same way.

  - LRUCache: a capacity-bounded LRU with TTL, used as the in-memory
    (venue_id, nonce) replay window. IsDuplicate checks and records in
    one locked step, so two concurrent deliveries of the same nonce
    cannot both pass.

Both are stdlib-only by design: they sit on per-event paths where a
network round trip (Redis) or a disk write (Badger) would dominate the
cost of the work being cached. The durable deduplication option lives
in the scoring package on top of BadgerDB; this package is only the
memory tier.

# Usage

	secrets := cache.New(30 * time.Second)
	secrets.Set(venueID, secret)
	if v, ok := secrets.Get(venueID); ok {
	    secret = v.(string)
	}

	window := cache.NewLRUCache(100_000, 5*time.Minute)
	if window.IsDuplicate(venueID + ":" + nonce) {
	    // drop the replayed event
	}

All operations are safe for concurrent use.
*/
package cache
