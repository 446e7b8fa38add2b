// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package scorecache stores the latest score snapshot per venue.

The scoring worker writes a snapshot after every applied event; the scores
API and the WebSocket hub read from here. Snapshots are a projection, never
the source of truth: the transaction ledger in DuckDB can rebuild every
snapshot from scratch.

# Backends

Two backends implement the Store interface, selected by configuration:

  - memory: a mutex-guarded map. Default. Snapshots vanish on restart and
    the scoring worker rebuilds them from the ledger during startup.
  - redis: one key per venue ("venue:<uuid>:score", JSON value, TTL).
    Survives restarts and can be shared by multiple API replicas.

# Usage

	store, err := scorecache.NewStore(&cfg.ScoreCache)
	if err != nil {
	    return err
	}
	defer store.Close()

	err = store.Put(ctx, snapshot)
	scores, err := store.List(ctx)

Reads return copies; mutating a returned snapshot never affects the cached
value.
*/
package scorecache
