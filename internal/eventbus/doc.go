// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

// Package eventbus provides the durable event backbone for occupancy
// ingestion using Watermill and NATS JetStream.
//
// Every occupancy delta accepted by the ingest gateway flows through
// JetStream before it touches any derived state. The stream is the
// single source of truth; the scoring worker, DuckDB transaction log,
// and WebSocket broadcasts are all downstream consumers of it:
//
//	┌─────────────┐          ┌─────────────┐
//	│ Field Agent │   ...    │ Field Agent │
//	└──────┬──────┘          └──────┬──────┘
//	       │  signed HTTP POST      │
//	       └───────────┬────────────┘
//	                   ▼
//	         ┌──────────────────┐
//	         │  Ingest Gateway  │  verify HMAC, freshness, range
//	         └────────┬─────────┘
//	                  │ occupancy.event.<venue_id>
//	                  ▼
//	        ┌────────────────────┐
//	        │   NATS JetStream   │  ← durable, ordered, deduplicating
//	        │ (OCCUPANCY_EVENTS) │
//	        └─────────┬──────────┘
//	                  │ durable pull (queue group "scorers")
//	                  ▼
//	         ┌──────────────────┐
//	         │  Scoring Worker  │  apply delta, recompute score
//	         └───┬────┬─────┬───┘
//	             │    │     │
//	             ▼    ▼     ▼
//	         DuckDB  Score  WebSocket
//	          (txns) Cache    Hub
//
// # Delivery Guarantees
//
// Publishing is synchronous JetStream publish with retries and a circuit
// breaker, so the gateway only returns 202 after the event is durably
// appended. Consumption is at-least-once: the stream-level Duplicates
// window deduplicates republished event IDs, and the scoring worker
// deduplicates (venue_id, nonce) pairs across the redelivery horizon.
// Per-venue ordering holds because each venue publishes to its own
// subject and JetStream preserves per-subject order.
//
// # Subject Layout
//
// A single stream carries two subject families:
//
//	occupancy.event.<venue_id>  venue occupancy deltas
//	occupancy.poison            messages that exhausted their retry budget
//
// The scoring worker subscribes to occupancy.event.> only, so poisoned
// messages never re-enter the scoring path. A dedicated recorder drains
// occupancy.poison into the dlq_entries table for operator inspection.
//
// # Key Components
//
//   - EmbeddedServer: in-process NATS JetStream server for single-binary deployments
//   - Publisher: Watermill publisher with circuit breaker and Nats-Msg-Id tracking
//   - Subscriber: durable JetStream consumer bound to the pre-created stream
//   - StreamInitializer: idempotent stream provisioning plus Purge for resets
//   - Router: Watermill router with recovery, retry, throttle, and poison middleware
//   - PoisonRecorder: persists dead-lettered messages for later inspection
//
// # Usage Example
//
//	server, err := eventbus.NewEmbeddedServer(&serverCfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Shutdown(ctx)
//
//	pub, err := eventbus.NewPublisher(eventbus.DefaultPublisherConfig(server.ClientURL()), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pub.Close()
//
//	event := eventbus.NewOccupancyEvent(venueID, +5)
//	event.Nonce = nonce
//	event.OccurredAt = occurredAt
//	if err := pub.PublishEvent(ctx, event); err != nil {
//	    // surface as 503 to the producer; agents retry with backoff
//	}
package eventbus
