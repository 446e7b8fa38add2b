// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package reset wipes all occupancy-derived state in one administrative
operation, returning every venue to zero while registrations, users, and
venue secrets survive.

The Controller owns the sequence. Each collaborator is a small interface
declared here and satisfied by the concrete type named on it, so tests
drive the sequence with fakes and the controller stays ignorant of
package internals:

	Pause lanes                 scoring.StateStore
	   |
	Capture stream position     eventbus.StreamInitializer
	   |
	Zero accumulators (barrier) scoring.StateStore
	   |
	Discard + flush appender    scoring.Appender
	   |
	Truncate ledger             database.DB
	   |
	Clear snapshots + nonces    scorecache.Store, scoring.Deduplicator
	   |
	Purge bus up to position    eventbus.StreamInitializer
	   |
	Rebuild zero snapshots      scoring.Worker
	   |
	Resume lanes, announce      scoring.StateStore, websocket.Hub

# The barrier

Ingest never stops. Venue agents keep posting events while the reset
runs, so the line between "wiped" and "kept" cannot be a moment of
silence; it is a timestamp, taken while the lanes are parked. Every
mechanism that could carry pre-barrier state forward checks against it:
the lanes drop applies whose receivedAt predates it, the appender drops
buffered ledger rows from before it, the snapshot cache refuses writes
describing older state, and the bus purge stops at the sequence captured
just before it so messages published mid-reset survive and apply once
the lanes resume.

# Failure

The first failing step aborts the reset and names itself in the error.
Completed steps are not rolled back. That is safe because every step is
destructive toward pre-reset state only: rerunning a half-finished reset
re-deletes what is already gone and converges on the same empty end
state. The lanes are resumed on every exit path, so a failed reset never
leaves the pipeline parked.

Only one reset runs at a time; a concurrent call fails fast with
ErrResetInFlight and the API surfaces it as a 409 conflict.
*/
package reset
