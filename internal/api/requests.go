// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

// Package api provides HTTP request validation structs with go-playground/validator tags.
// These structs are used to validate incoming API request parameters before processing.
//
// The validation tags follow the go-playground/validator v10 syntax:
//   - required: field must be present and non-zero
//   - min,max: numeric or string length bounds
//   - uuid: value must be a valid UUID
//   - omitempty: skip validation if field is empty/zero
//
// Example usage:
//
//	req := TransactionsRequest{
//	    VenueID: chi.URLParam(r, "venueID"),
//	    Limit:   getIntParam(r, "limit", cfg.API.DefaultPageSize),
//	    Offset:  getIntParam(r, "offset", 0),
//	}
//	if apiErr := validateRequest(&req); apiErr != nil {
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package api

// TransactionsRequest represents the validated query parameters for the
// per-venue transaction history endpoint.
//
// Fields:
//   - VenueID: Venue whose ledger is being read (path parameter)
//   - Limit: Results per page (1-1000, clamped to the configured max)
//   - Offset: Number of results to skip (0-1000000)
type TransactionsRequest struct {
	VenueID string `validate:"required,uuid"`
	Limit   int    `validate:"min=1,max=1000"`
	Offset  int    `validate:"min=0,max=1000000"`
}

// DLQRequest represents the validated query parameters for the dead-letter
// queue listing endpoint.
//
// Fields:
//   - Limit: Results per page (1-1000)
//   - Offset: Number of results to skip (0-1000000)
type DLQRequest struct {
	Limit  int `validate:"min=1,max=1000"`
	Offset int `validate:"min=0,max=1000000"`
}

// VenueIDRequest validates a venue identifier taken from the request path.
type VenueIDRequest struct {
	VenueID string `validate:"required,uuid"`
}
