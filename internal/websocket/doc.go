// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
Package websocket provides the live score feed for connected dashboards.

The scoring worker recomputes a venue's hotness score every time it applies
an occupancy event, and the decay refresher recomputes idle venues on a
timer. Both push their snapshots into the Hub here, which fans them out to
every connected WebSocket client. The package uses the gorilla/websocket
library with a hub-client architecture.

Key Components:

  - Hub: Central message broker that manages client connections and broadcasts
  - Client: Represents a single WebSocket connection with read/write goroutines
  - Message: Typed message structure for different event types

Architecture:

The package implements a hub-and-spoke pattern:

	┌──────────┐
	│   Hub    │ ← Broadcasts to all clients
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│          │         │         │
	│ Client1  │ Client2 │ Client3 │ Client4
	│          │         │         │
	└──────────┴─────────┴─────────┘

Each client has two goroutines:
  - readPump: Reads from WebSocket, handles pings
  - writePump: Writes to WebSocket, sends pongs

Message Types:

The following message types are supported:

  - score_update: A venue's score snapshot changed (venue_id, score,
    current_occupancy, last_event_at, ...)
  - reset_completed: A simulation reset finished (venues_reset,
    reset_duration_ms)
  - ping / pong: Application-level liveness checks initiated by the client

Broadcast order is deterministic: clients are sorted by a monotonically
assigned id before each fan-out, and a client that cannot keep up (full
send buffer) is disconnected rather than allowed to stall the feed.

Usage Example - Server:

	import (
	    "github.com/tomtom215/venuepulse/internal/scoring"
	    "github.com/tomtom215/venuepulse/internal/websocket"
	)

	// Create hub (usually supervised by suture via RunWithContext)
	hub := websocket.NewHub()
	go func() {
	    _ = hub.RunWithContext(ctx)
	}()

	// Wire the hub into the scoring pipeline as its Broadcaster
	worker, err := scoring.NewWorker(scoring.WorkerOptions{
	    // ...
	    Broadcaster: hub,
	})

	// After a simulation reset
	hub.BroadcastResetCompleted(5, 2340) // 5 venues, 2340ms

Usage Example - Client (JavaScript):

	// Connect to WebSocket
	const ws = new WebSocket('ws://localhost:8000/ws');

	ws.onmessage = (event) => {
	    const msg = JSON.parse(event.data);

	    if (msg.type === 'score_update') {
	        updateMarker(msg.data.venue_id, msg.data.score);
	    }

	    if (msg.type === 'reset_completed') {
	        clearAllMarkers(); // Start over from zeroed state
	    }
	};

Connection Lifecycle:

1. Client connects via HTTP upgrade (handled in internal/api)
2. Hub registers client
3. Client starts read/write goroutines
4. Hub broadcasts messages to all clients
5. Client disconnects (network error or explicit close)
6. Hub unregisters client and cleans up

Thread Safety:

The package is fully thread-safe:
  - Hub uses mutex for client map access
  - Channels coordinate goroutine communication
  - Each client has separate read/write goroutines
  - No shared mutable state between clients

Configuration:

WebSocket settings:
  - writeWait: 10 seconds (time allowed to write message)
  - pongWait: 60 seconds (time allowed to read pong)
  - pingPeriod: 54 seconds (ping interval, must be < pongWait)
  - maxMessageSize: 512 bytes (clients only send ping frames)

See Also:

  - github.com/gorilla/websocket: Underlying WebSocket library
  - internal/api: WebSocket endpoint handler
  - internal/scoring: Score snapshot producers
*/
package websocket
