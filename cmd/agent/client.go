// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/models"
	"github.com/tomtom215/venuepulse/internal/signature"
)

// sendOutcome classifies one ingest attempt for the summary counters.
type sendOutcome int

const (
	sendAccepted sendOutcome = iota // 202, event durable on the bus
	sendRejected                    // 4xx, the server refused the event
	sendFailed                      // transport error or 5xx
)

// ingestClient posts signed occupancy events to the server.
//
// The body is marshaled once and signed over those exact bytes; resty
// must not re-serialize, so the payload is passed as []byte.
type ingestClient struct {
	http *resty.Client
}

func newIngestClient(baseURL string) *ingestClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry transport errors and bus-unavailable, never auth
			// or validation rejections
			return err != nil || r.StatusCode() == http.StatusServiceUnavailable
		})

	return &ingestClient{http: client}
}

// sendEvent signs and posts one occupancy delta for the venue.
func (c *ingestClient) sendEvent(ctx context.Context, venue AgentVenue, delta int) sendOutcome {
	payload := models.IngestPayload{
		VenueID:    venue.ID,
		Delta:      delta,
		OccurredAt: time.Now().UTC(),
		Nonce:      uuid.NewString(),
		Source:     "agent",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Str("venue", venue.Name).Msg("Failed to marshal payload")
		return sendFailed
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(signature.Header, signature.Compute(venue.Secret, body)).
		SetBody(body).
		Post("/api/v1/ingest")
	if err != nil {
		logging.Warn().Err(err).Str("venue", venue.Name).Msg("Ingest request failed")
		return sendFailed
	}

	switch {
	case resp.StatusCode() == http.StatusAccepted:
		return sendAccepted
	case resp.StatusCode() >= 400 && resp.StatusCode() < 500:
		logging.Warn().
			Str("venue", venue.Name).
			Int("status", resp.StatusCode()).
			Str("body", resp.String()).
			Msg("Event rejected")
		return sendRejected
	default:
		logging.Warn().
			Str("venue", venue.Name).
			Int("status", resp.StatusCode()).
			Msg("Server error")
		return sendFailed
	}
}
