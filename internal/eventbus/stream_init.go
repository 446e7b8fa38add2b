// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package eventbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamContext defines the subset of jetstream.JetStream used by
// StreamInitializer. This interface allows testing with mock implementations.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	DeleteStream(ctx context.Context, name string) error
}

// StreamInitializer handles JetStream stream lifecycle management.
// It ensures the occupancy stream exists with the correct configuration
// before publishers and subscribers start, and owns the purge operation
// the reset controller uses to drop pre-reset events.
//
// Key responsibilities:
//   - Create stream if it doesn't exist
//   - Update stream configuration if it already exists
//   - Purge pre-reset messages during a simulation reset
//   - Provide health check for stream availability
type StreamInitializer struct {
	js     JetStreamContext
	config StreamConfig
}

// NewStreamInitializer creates a new stream initializer with the given configuration.
// Returns an error if the JetStream context or config is nil.
func NewStreamInitializer(js JetStreamContext, cfg *StreamConfig) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("stream config required")
	}

	return &StreamInitializer{
		js:     js,
		config: *cfg,
	}, nil
}

// EnsureStream creates or updates the stream with the configured settings.
// This operation is idempotent; calling it multiple times is safe.
//
// The stream is configured with:
//   - File storage for durability across restarts
//   - LimitsPolicy retention (FIFO when limits reached)
//   - AllowDirect=true for efficient direct get operations
//   - Duplicates window for server-side Nats-Msg-Id deduplication
//
// Returns the stream handle or an error if creation/update fails.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:        s.config.Name,
		Subjects:    s.config.Subjects,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      s.config.MaxAge,
		MaxBytes:    s.config.MaxBytes,
		MaxMsgs:     s.config.MaxMsgs,
		Duplicates:  s.config.DuplicateWindow,
		Replicas:    s.config.Replicas,
		Storage:     jetstream.FileStorage,
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
		AllowRollup: true,
	}

	// Try to get existing stream
	_, err := s.js.Stream(ctx, s.config.Name)
	if err == nil {
		// Stream exists, update configuration
		stream, err := s.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", s.config.Name, err)
		}
		return stream, nil
	}

	// Stream doesn't exist, create it
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := s.js.CreateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", s.config.Name, err)
		}
		return stream, nil
	}

	// Unexpected error checking stream existence
	return nil, fmt.Errorf("check stream %s: %w", s.config.Name, err)
}

// Purge removes all messages from the stream. PurgeUpTo is the bounded
// variant the reset controller uses; this one is for operational
// cleanup where nothing in flight needs preserving.
// Returns ErrStreamNotFound if the stream does not exist yet.
func (s *StreamInitializer) Purge(ctx context.Context) error {
	stream, err := s.js.Stream(ctx, s.config.Name)
	if err != nil {
		if errors.Is(err, jetstream.ErrStreamNotFound) {
			return ErrStreamNotFound
		}
		return fmt.Errorf("get stream %s: %w", s.config.Name, err)
	}

	if err := stream.Purge(ctx); err != nil {
		return fmt.Errorf("purge stream %s: %w", s.config.Name, err)
	}
	return nil
}

// LastSequence returns the sequence of the newest message in the stream,
// or 0 if the stream is empty. The reset controller captures it before
// taking the barrier: every message at or below it was published before
// the barrier, everything above it arrived later and must survive.
func (s *StreamInitializer) LastSequence(ctx context.Context) (uint64, error) {
	info, err := s.GetStreamInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.State.LastSeq, nil
}

// PurgeUpTo removes every message with a sequence at or below seq,
// leaving later messages in place. Events published while a reset runs
// keep flowing into the stream; purging past the captured sequence
// would throw them away.
//
// Durable consumers keep their positions: a position inside the purged
// range now points at nothing, so pre-reset messages are never
// redelivered. Returns ErrStreamNotFound if the stream does not exist.
func (s *StreamInitializer) PurgeUpTo(ctx context.Context, seq uint64) error {
	stream, err := s.js.Stream(ctx, s.config.Name)
	if err != nil {
		if errors.Is(err, jetstream.ErrStreamNotFound) {
			return ErrStreamNotFound
		}
		return fmt.Errorf("get stream %s: %w", s.config.Name, err)
	}

	// WithPurgeSequence is exclusive of the given sequence.
	if err := stream.Purge(ctx, jetstream.WithPurgeSequence(seq+1)); err != nil {
		return fmt.Errorf("purge stream %s up to seq %d: %w", s.config.Name, seq, err)
	}
	return nil
}

// GetStreamInfo retrieves current stream state and configuration.
// Returns an error if the stream doesn't exist.
func (s *StreamInitializer) GetStreamInfo(ctx context.Context) (*jetstream.StreamInfo, error) {
	stream, err := s.js.Stream(ctx, s.config.Name)
	if err != nil {
		return nil, fmt.Errorf("get stream %s: %w", s.config.Name, err)
	}
	return stream.Info(ctx)
}

// IsHealthy checks if the stream exists and is accessible.
func (s *StreamInitializer) IsHealthy(ctx context.Context) bool {
	_, err := s.js.Stream(ctx, s.config.Name)
	return err == nil
}

// Config returns the current stream configuration.
func (s *StreamInitializer) Config() StreamConfig {
	return s.config
}
