// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package scoring consumes occupancy events from the bus and turns them into
live venue scores.

The package is the write side of the system. The ingest gateway publishes
verified OccupancyEvents to JetStream; this package's Worker is the consumer
that applies them:

	bus message
	   |
	   v
	Worker.Handle          parse, validate, dedup by (venue_id, nonce)
	   |
	   v
	StateStore.Apply       signed per-venue accumulator, one lane per venue
	   |
	   v
	Engine.ComputeScore    score = round(100 * min(1, occupancy/capacity) * exp(-elapsed/tau))
	   |
	   +--> scorecache.Store    snapshot for /scores readers and websockets
	   +--> Appender            batched append to the DuckDB ledger

# State lanes

VenueState mutation is single-writer: the StateStore hashes each venue ID
onto one of a fixed set of lane goroutines, and only the owning lane touches
that venue's accumulator. Events for one venue therefore apply in arrival
order while distinct venues proceed in parallel. The accumulator is signed
so that a +10/-10 pair redelivered in either order still nets to zero;
negative values only surface as occupancy 0.

The lanes support a pause/resume barrier for the admin reset: Pause drains
each lane's queued work and parks it, Zero wipes the accumulators and
records the barrier time, Resume releases the lanes. Events received before
the barrier that are still in flight when the reset completes are dropped
rather than applied to post-reset state.

# Deduplication

JetStream's duplicate window absorbs republished copies by Nats-Msg-Id.
The Worker adds an application-level layer keyed on (venue_id, nonce) that
survives consumer redeliveries: the default in-memory store is a bounded
TTL LRU, and the optional Badger store persists nonces across restarts.
Duplicates inside the window are acked and skipped. Duplicates that arrive
after the window has expired are applied again; that drift is accepted and
repaired by the admin reset rather than hidden.

# Decay

Scores decay between events. Snapshots store the raw occupancy and the
last event time; every read recomputes the decayed score, so a venue with
no fresh events visibly cools toward zero. The Refresher rebroadcasts the
recomputed scores on a fixed interval so websocket clients see the decay
without polling.
*/
package scoring
