// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package eventbus

import (
	"testing"
	"time"
)

func TestNewOccupancyEvent(t *testing.T) {
	event := NewOccupancyEvent("venue-1", 5)

	if event.EventID == "" {
		t.Error("Expected EventID to be set")
	}
	if event.VenueID != "venue-1" {
		t.Errorf("Expected VenueID=venue-1, got %s", event.VenueID)
	}
	if event.Delta != 5 {
		t.Errorf("Expected Delta=5, got %d", event.Delta)
	}
	if event.SchemaVersion != SchemaVersion {
		t.Errorf("Expected SchemaVersion=%d, got %d", SchemaVersion, event.SchemaVersion)
	}
	if event.ReceivedAt.IsZero() {
		t.Error("Expected ReceivedAt to be set")
	}
}

func TestNewOccupancyEvent_UniqueIDs(t *testing.T) {
	a := NewOccupancyEvent("venue-1", 1)
	b := NewOccupancyEvent("venue-1", 1)
	if a.EventID == b.EventID {
		t.Errorf("Expected distinct EventIDs, both were %s", a.EventID)
	}
}

func TestOccupancyEvent_Validate(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		event   *OccupancyEvent
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid event",
			event: &OccupancyEvent{
				EventID:    "test-id",
				VenueID:    "venue-1",
				Nonce:      "nonce-1",
				Delta:      3,
				OccurredAt: now,
			},
			wantErr: false,
		},
		{
			name: "valid negative delta",
			event: &OccupancyEvent{
				EventID:    "test-id",
				VenueID:    "venue-1",
				Nonce:      "nonce-1",
				Delta:      -2,
				OccurredAt: now,
			},
			wantErr: false,
		},
		{
			name: "missing event_id",
			event: &OccupancyEvent{
				VenueID:    "venue-1",
				Nonce:      "nonce-1",
				Delta:      3,
				OccurredAt: now,
			},
			wantErr: true,
			errMsg:  "event_id: required",
		},
		{
			name: "missing venue_id",
			event: &OccupancyEvent{
				EventID:    "test-id",
				Nonce:      "nonce-1",
				Delta:      3,
				OccurredAt: now,
			},
			wantErr: true,
			errMsg:  "venue_id: required",
		},
		{
			name: "missing nonce",
			event: &OccupancyEvent{
				EventID:    "test-id",
				VenueID:    "venue-1",
				Delta:      3,
				OccurredAt: now,
			},
			wantErr: true,
			errMsg:  "nonce: required",
		},
		{
			name: "zero delta",
			event: &OccupancyEvent{
				EventID:    "test-id",
				VenueID:    "venue-1",
				Nonce:      "nonce-1",
				Delta:      0,
				OccurredAt: now,
			},
			wantErr: true,
			errMsg:  "delta: must be non-zero",
		},
		{
			name: "missing occurred_at",
			event: &OccupancyEvent{
				EventID: "test-id",
				VenueID: "venue-1",
				Nonce:   "nonce-1",
				Delta:   3,
			},
			wantErr: true,
			errMsg:  "occurred_at: required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got nil")
				} else if err.Error() != tt.errMsg {
					t.Errorf("Expected error %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestOccupancyEvent_Topic(t *testing.T) {
	tests := []struct {
		venueID  string
		expected string
	}{
		{"00000000-0000-0000-0000-000000000001", "occupancy.event.00000000-0000-0000-0000-000000000001"},
		{"venue-abc", "occupancy.event.venue-abc"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			event := &OccupancyEvent{VenueID: tt.venueID}
			if got := event.Topic(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestOccupancyEvent_DedupKey(t *testing.T) {
	event := &OccupancyEvent{VenueID: "venue-1", Nonce: "abc123"}
	if got := event.DedupKey(); got != "venue-1:abc123" {
		t.Errorf("Expected venue-1:abc123, got %s", got)
	}

	// Same nonce under a different venue must yield a different key.
	other := &OccupancyEvent{VenueID: "venue-2", Nonce: "abc123"}
	if event.DedupKey() == other.DedupKey() {
		t.Error("Expected distinct dedup keys for distinct venues")
	}
}

func TestOccupancyEvent_SchemaVersionHelpers(t *testing.T) {
	t.Run("legacy event defaults to version 1", func(t *testing.T) {
		event := &OccupancyEvent{}
		if got := event.GetSchemaVersion(); got != 1 {
			t.Errorf("Expected version 1, got %d", got)
		}
	})

	t.Run("ensure sets missing version", func(t *testing.T) {
		event := &OccupancyEvent{}
		event.EnsureSchemaVersion()
		if event.SchemaVersion != SchemaVersion {
			t.Errorf("Expected SchemaVersion=%d, got %d", SchemaVersion, event.SchemaVersion)
		}
	})

	t.Run("ensure preserves existing version", func(t *testing.T) {
		event := &OccupancyEvent{SchemaVersion: 42}
		event.EnsureSchemaVersion()
		if event.SchemaVersion != 42 {
			t.Errorf("Expected SchemaVersion=42, got %d", event.SchemaVersion)
		}
	})
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "delta", Message: "must be non-zero"}
	if err.Error() != "delta: must be non-zero" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}
}

func TestSubjectConstants(t *testing.T) {
	// The poison subject must not match the event wildcard; otherwise
	// dead-lettered messages would loop back into the scoring consumer.
	event := &OccupancyEvent{VenueID: "any"}
	topic := event.Topic()

	if topic == PoisonSubject {
		t.Error("Event topic must differ from poison subject")
	}
	if EventSubjectPrefix+">" != EventSubjectWildcard {
		t.Errorf("EventSubjectWildcard = %s, want %s", EventSubjectWildcard, EventSubjectPrefix+">")
	}
	if PoisonSubject == EventSubjectPrefix+"poison" {
		t.Error("Poison subject must live outside the event prefix")
	}
}
