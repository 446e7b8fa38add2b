// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version.
// Increment this when making breaking changes to OccupancyEvent.
const SchemaVersion = 1

// Subject layout for the OCCUPANCY_EVENTS stream. Occupancy deltas and
// poison copies share one stream but live under distinct sub-subjects so
// the scoring consumer never receives dead-lettered messages.
const (
	// StreamSubjectWildcard covers every subject captured by the stream.
	StreamSubjectWildcard = "occupancy.>"
	// EventSubjectPrefix is the prefix for per-venue occupancy events.
	EventSubjectPrefix = "occupancy.event."
	// EventSubjectWildcard matches every venue's event subject.
	EventSubjectWildcard = "occupancy.event.>"
	// PoisonSubject receives messages that exhausted their retry budget.
	PoisonSubject = "occupancy.poison"
)

// OccupancyEvent is the canonical wire format for a single occupancy
// delta. It is produced by the ingest gateway after signature and
// freshness checks pass, and consumed by the scoring worker.
//
// Schema versioning:
//   - SchemaVersion tracks the event format version
//   - Consumers should tolerate older schema versions
//   - Version 1: initial schema with all current fields
type OccupancyEvent struct {
	// Schema version for forward/backward compatibility
	SchemaVersion int `json:"schema_version,omitempty"`

	// EventID is the server-assigned unique identifier. It doubles as
	// the Nats-Msg-Id so JetStream drops republished copies inside the
	// stream's Duplicates window.
	EventID string `json:"event_id"`

	// VenueID identifies the venue whose occupancy changed.
	VenueID string `json:"venue_id"`

	// Nonce is the producer-chosen replay token. The scoring worker
	// tracks (venue_id, nonce) pairs and skips redelivered duplicates.
	Nonce string `json:"nonce"`

	// Delta is the signed occupancy change (+3 people in, -2 out).
	Delta int `json:"delta"`

	// OccurredAt is the producer's event timestamp, bounded by the
	// gateway's freshness window at ingest time.
	OccurredAt time.Time `json:"occurred_at"`

	// ReceivedAt is when the gateway accepted the event.
	ReceivedAt time.Time `json:"received_at"`

	// Source labels the producing agent (optional, e.g. "door-counter-1").
	Source string `json:"source,omitempty"`
}

// NewOccupancyEvent creates an event with a unique ID, receive timestamp,
// and schema version. OccurredAt and Nonce are set by the caller from the
// verified request payload.
func NewOccupancyEvent(venueID string, delta int) *OccupancyEvent {
	return &OccupancyEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		VenueID:       venueID,
		Delta:         delta,
		ReceivedAt:    time.Now().UTC(),
	}
}

// GetSchemaVersion returns the schema version, defaulting to 1 for legacy events.
func (e *OccupancyEvent) GetSchemaVersion() int {
	if e.SchemaVersion == 0 {
		return 1
	}
	return e.SchemaVersion
}

// EnsureSchemaVersion sets the schema version if not already set.
// Call this when processing events that may not have a version set.
func (e *OccupancyEvent) EnsureSchemaVersion() {
	if e.SchemaVersion == 0 {
		e.SchemaVersion = SchemaVersion
	}
}

// Validate checks required fields and returns an error if validation fails.
func (e *OccupancyEvent) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.VenueID == "" {
		return &ValidationError{Field: "venue_id", Message: "required"}
	}
	if e.Nonce == "" {
		return &ValidationError{Field: "nonce", Message: "required"}
	}
	if e.Delta == 0 {
		return &ValidationError{Field: "delta", Message: "must be non-zero"}
	}
	if e.OccurredAt.IsZero() {
		return &ValidationError{Field: "occurred_at", Message: "required"}
	}
	return nil
}

// Topic returns the NATS subject for this event.
// Format: occupancy.event.<venue_id>
//
// Venue IDs are UUIDs, so the subject token never contains the
// reserved characters ".", "*", or ">". Publishing each venue to its
// own subject gives per-venue total order through JetStream.
func (e *OccupancyEvent) Topic() string {
	return EventSubjectPrefix + e.VenueID
}

// DedupKey returns the replay-window deduplication key.
// Two events with the same key are the same logical delta, however many
// times the bus redelivers them.
func (e *OccupancyEvent) DedupKey() string {
	return e.VenueID + ":" + e.Nonce
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
