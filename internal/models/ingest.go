// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package models

import "time"

// IngestPayload is the sensor payload accepted by the ingest gateway.
//
// The raw request body is HMAC-signed by the venue's sensors before this
// struct is decoded, so field validation runs only on authenticated
// payloads. Delta is the occupancy change since the previous report
// (positive for entries, negative for exits), never an absolute count.
//
// Validation:
//   - VenueID: required, UUID of a registered venue
//   - Delta: required, non-zero, -500 to 500
//   - OccurredAt: required, sensor-side observation time
//   - Nonce: required, 8-128 chars, unique per event for replay protection
//   - Source: optional sensor identifier, max 100 chars
//
// Example:
//
//	{
//	  "venue_id": "00000000-0000-0000-0000-000000000001",
//	  "delta": 4,
//	  "occurred_at": "2026-08-25T01:12:44Z",
//	  "nonce": "a3f8c2d1-9b7e-4f06",
//	  "source": "door-north"
//	}
type IngestPayload struct {
	VenueID    string    `json:"venue_id" validate:"required,uuid"`
	Delta      int       `json:"delta" validate:"required,ne=0,min=-500,max=500"`
	OccurredAt time.Time `json:"occurred_at" validate:"required"`
	Nonce      string    `json:"nonce" validate:"required,min=8,max=128"`
	Source     string    `json:"source,omitempty" validate:"omitempty,max=100"`
}
