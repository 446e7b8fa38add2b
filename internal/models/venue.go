// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package models

import (
	"time"

	"github.com/google/uuid"
)

// Venue represents a registered venue in the occupancy pipeline.
//
// The Secret field holds the per-venue HMAC key used to authenticate
// sensor payloads. It is never serialized in API responses.
//
// Fields:
//   - ID: Stable venue identifier (UUID)
//   - Name: Display name ("Joe Kool's")
//   - Latitude, Longitude: WGS84 coordinates for map placement
//   - Capacity: Maximum legal occupancy, the denominator of the score
//   - Secret: HMAC-SHA256 signing key shared with the venue's sensors
//   - CreatedAt: Registration timestamp
type Venue struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Capacity  int       `json:"capacity"`
	Secret    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateVenueRequest is the admin payload for registering a new venue.
//
// Validation:
//   - Name: required, 1-200 chars
//   - Latitude: -90 to 90
//   - Longitude: -180 to 180
//   - Capacity: 1 to 100000
//   - Secret: optional, 8-128 chars. When omitted the server generates a
//     random signing key and returns it once in the create response.
type CreateVenueRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=200"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Capacity  int     `json:"capacity" validate:"required,min=1,max=100000"`
	Secret    string  `json:"secret,omitempty" validate:"omitempty,min=8,max=128"`
}

// UpdateVenueRequest is the admin payload for changing a venue's metadata.
// The signing secret is not updatable through the API; rotating a key means
// registering a new venue and retiring the old one.
type UpdateVenueRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=200"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Capacity  int     `json:"capacity" validate:"required,min=1,max=100000"`
}

// VenueCreated is the create-venue response. It is the only place the API
// ever exposes a venue's signing secret; subsequent reads omit it.
type VenueCreated struct {
	Venue
	Secret string `json:"secret"`
}

// VenueScore is the live score projection returned by the scores API and
// pushed over WebSocket. Score is recomputed with time decay at read time,
// so two reads of the same snapshot can differ; CurrentOccupancy only
// changes when events arrive.
//
// Fields:
//   - VenueID: The venue this score belongs to
//   - Name: Venue display name (denormalized for map rendering)
//   - Latitude, Longitude: Venue coordinates (denormalized)
//   - Capacity: Venue capacity
//   - CurrentOccupancy: Accumulated occupancy, clamped at zero
//   - Score: 0-100 busyness score after exponential decay
//   - LastEventAt: Occurrence time of the newest event applied
//   - UpdatedAt: When the underlying snapshot was last written
//
// Example:
//
//	{
//	  "venue_id": "00000000-0000-0000-0000-000000000001",
//	  "name": "Joe Kool's",
//	  "latitude": 42.9849,
//	  "longitude": -81.2453,
//	  "capacity": 150,
//	  "current_occupancy": 93,
//	  "score": 58,
//	  "last_event_at": "2026-08-25T01:12:44Z",
//	  "updated_at": "2026-08-25T01:12:44Z"
//	}
type VenueScore struct {
	VenueID          uuid.UUID `json:"venue_id"`
	Name             string    `json:"name"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Capacity         int       `json:"capacity"`
	CurrentOccupancy int64     `json:"current_occupancy"`
	Score            int       `json:"score"`
	LastEventAt      time.Time `json:"last_event_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
