// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
// It provides consistent structure for both successful and error responses, with metadata
// for observability.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"venue_id": "...", "score": 87},
//	  "metadata": {
//	    "timestamp": "2026-08-25T12:00:00Z",
//	    "query_time_ms": 3
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "delta must be between -500 and 500",
//	    "details": {"field": "delta"}
//	  },
//	  "metadata": {"timestamp": "2026-08-25T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability and performance tracking.
//
// Fields:
//   - Timestamp: Server time when response was generated (RFC3339 format)
//   - QueryTimeMS: Query execution time in milliseconds (0 if served from cache)
//   - Cached: Whether the response was served from the score cache
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters (HTTP 400)
//   - AUTHENTICATION_ERROR: Invalid/missing credentials or signature (HTTP 401)
//   - STALE_TIMESTAMP: Signed payload outside the replay window (HTTP 401)
//   - AUTHORIZATION_ERROR: Insufficient role (HTTP 403)
//   - NOT_FOUND: Resource doesn't exist (HTTP 404)
//   - RESET_IN_PROGRESS: A venue reset is already running (HTTP 409)
//   - RATE_LIMIT_EXCEEDED: Too many requests (HTTP 429)
//   - SERVICE_UNAVAILABLE: Event bus rejected the publish (HTTP 503)
//
// Example:
//
//	{
//	  "code": "SERVICE_UNAVAILABLE",
//	  "message": "event bus unavailable, retry later",
//	  "details": {"retryable": true}
//	}
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PaginationInfo contains offset-based pagination metadata for list endpoints.
//
// Fields:
//   - Limit: Maximum results per page (from request, clamped to API_MAX_PAGE_SIZE)
//   - Offset: Number of results skipped
//   - Total: Total results matching the filter
//   - HasMore: Whether more results exist beyond the current page
type PaginationInfo struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// TransactionsResponse wraps a transaction page with pagination info.
//
// Example response:
//
//	{
//	  "transactions": [
//	    {"id": 412, "venue_id": "...", "delta": 4, ...},
//	    {"id": 411, "venue_id": "...", "delta": -2, ...}
//	  ],
//	  "pagination": {"limit": 20, "offset": 0, "total": 412, "has_more": true}
//	}
type TransactionsResponse struct {
	Transactions []Transaction  `json:"transactions"`
	Pagination   PaginationInfo `json:"pagination"`
}
