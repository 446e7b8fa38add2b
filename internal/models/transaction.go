// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is one immutable row of the occupancy ledger. The scoring
// worker appends a transaction for every event it applies; the ledger is
// the audit trail behind the in-memory accumulators and is truncated only
// by an admin reset.
//
// Fields:
//   - ID: Monotonic row id assigned by the database
//   - EventID: Bus event id, unique across the ledger
//   - VenueID: Venue the delta applies to
//   - Delta: Signed occupancy change (+3 people in, -2 people out)
//   - Nonce: Producer anti-replay token, kept for audit
//   - OccurredAt: Sensor-side timestamp, used for decay ordering
//   - ReceivedAt: Gateway-side arrival timestamp
//   - Source: Producer tag ("door-north", "agent")
//   - RecordedAt: When the worker persisted the row
type Transaction struct {
	ID         int64     `json:"id"`
	EventID    uuid.UUID `json:"event_id"`
	VenueID    uuid.UUID `json:"venue_id"`
	Delta      int       `json:"delta"`
	Nonce      string    `json:"nonce,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	ReceivedAt time.Time `json:"received_at"`
	Source     string    `json:"source,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// DLQEntry is a poisoned event captured for operator inspection. Events
// land here after exhausting their redelivery budget or failing permanent
// validation inside the scoring worker.
//
// Fields:
//   - ID: Monotonic row id
//   - EventID: Bus event id of the poisoned message, when parseable
//   - Topic: Subject the message arrived on
//   - Payload: Raw message payload (may be malformed JSON)
//   - Reason: Terminal error that condemned the message
//   - FailedAt: When the message was dead-lettered
type DLQEntry struct {
	ID       int64     `json:"id"`
	EventID  string    `json:"event_id,omitempty"`
	Topic    string    `json:"topic"`
	Payload  string    `json:"payload"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
