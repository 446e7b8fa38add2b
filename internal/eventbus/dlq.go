// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package eventbus

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/venuepulse/internal/metrics"
	"github.com/tomtom215/venuepulse/internal/models"
)

// DLQStore persists dead-lettered messages. Implemented by the DuckDB
// database layer; the dlq_entries table survives restarts and simulation
// resets so poisoned events stay inspectable.
type DLQStore interface {
	SaveDLQEntry(ctx context.Context, entry *models.DLQEntry) error
}

// PoisonRecorder drains the poison subject into the DLQ store.
//
// It runs on its own subscriber loop rather than on the Router: if it sat
// behind the poison-queue middleware, a failed save would re-poison the
// message to its own input topic and the stream's duplicate window would
// silently drop the copy. On its own loop a failed save simply nacks, and
// JetStream redelivers up to the consumer's MaxDeliver.
type PoisonRecorder struct {
	store    DLQStore
	logger   watermill.LoggerAdapter
	recorded atomic.Int64
	failed   atomic.Int64
}

// NewPoisonRecorder creates a recorder that persists poisoned messages.
func NewPoisonRecorder(store DLQStore, logger watermill.LoggerAdapter) (*PoisonRecorder, error) {
	if store == nil {
		return nil, fmt.Errorf("DLQ store required")
	}
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	return &PoisonRecorder{
		store:  store,
		logger: logger,
	}, nil
}

// Handle processes a single poisoned message.
// Wire it through Subscriber.NewMessageHandler(PoisonSubject).
func (r *PoisonRecorder) Handle(ctx context.Context, msg *message.Message) error {
	entry := &models.DLQEntry{
		Topic:    msg.Metadata.Get(middleware.PoisonedTopicKey),
		Payload:  string(msg.Payload),
		Reason:   msg.Metadata.Get(middleware.ReasonForPoisonedKey),
		FailedAt: time.Now().UTC(),
	}
	if entry.Reason == "" {
		entry.Reason = "unknown"
	}

	// Best effort: the payload may be the malformed JSON that poisoned
	// the message in the first place.
	if event, err := DeserializeEvent(msg.Payload); err == nil {
		entry.EventID = event.EventID
	}

	if err := r.store.SaveDLQEntry(ctx, entry); err != nil {
		r.failed.Add(1)
		r.logger.Error("Failed to persist DLQ entry", err, watermill.LogFields{
			"message_uuid": msg.UUID,
			"topic":        entry.Topic,
		})
		return NewRetryableError("save dlq entry", err)
	}

	metrics.RecordDLQEntry()
	r.recorded.Add(1)

	r.logger.Info("Dead-lettered message recorded", watermill.LogFields{
		"message_uuid": msg.UUID,
		"event_id":     entry.EventID,
		"topic":        entry.Topic,
		"reason":       entry.Reason,
	})

	return nil
}

// Recorded returns how many entries were persisted since startup.
func (r *PoisonRecorder) Recorded() int64 {
	return r.recorded.Load()
}

// HealthCheck implements the HealthCheckable interface.
func (r *PoisonRecorder) HealthCheck(ctx context.Context) ComponentHealth {
	return ComponentHealth{
		Healthy: true,
		Message: "poison recorder is operational",
		Details: map[string]interface{}{
			"recorded": r.recorded.Load(),
			"failed":   r.failed.Load(),
		},
	}
}
