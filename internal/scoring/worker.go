// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/cache"
	"github.com/tomtom215/venuepulse/internal/database"
	"github.com/tomtom215/venuepulse/internal/eventbus"
	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/metrics"
	"github.com/tomtom215/venuepulse/internal/models"
	"github.com/tomtom215/venuepulse/internal/scorecache"
)

// VenueSource provides the venue registry reads the worker needs.
// Implemented by the DuckDB database layer.
type VenueSource interface {
	GetVenue(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	ListVenues(ctx context.Context) ([]*models.Venue, error)
	SumDeltas(ctx context.Context, venueID uuid.UUID) (int64, time.Time, error)
}

// Broadcaster pushes score snapshots to websocket subscribers.
// This keeps the worker decoupled from the websocket hub implementation.
type Broadcaster interface {
	BroadcastScoreUpdate(score *models.VenueScore)
}

// WorkerConfig holds tuning knobs for the scoring worker.
type WorkerConfig struct {
	// VenueCacheTTL bounds how stale the worker's cached venue metadata
	// (capacity, name, coordinates) may get. Capacity edits propagate to
	// scoring within this window.
	VenueCacheTTL time.Duration

	// SyncFlush forces a ledger flush after each append, so the DuckDB
	// write completes before the bus message is acked. Default off: the
	// accumulator is rebuilt from the ledger on restart, so losing the
	// last unflushed batch costs audit rows, not scores.
	SyncFlush bool
}

// DefaultWorkerConfig returns production defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		VenueCacheTTL: 5 * time.Minute,
	}
}

// WorkerOptions wires the worker's collaborators.
type WorkerOptions struct {
	States      *StateStore
	Dedup       Deduplicator
	Venues      VenueSource
	Scores      scorecache.Store
	Appender    *Appender
	Engine      *Engine
	Broadcaster Broadcaster             // optional
	Logger      watermill.LoggerAdapter // optional
	Config      WorkerConfig
}

// Worker consumes occupancy events and maintains the live scores.
// Handle is the function passed to Router.AddConsumerHandler; it runs
// under the router's middleware stack (recoverer, retry, poison queue).
//
// Error contract:
//   - Malformed or invalid events return PermanentError (no retry, DLQ)
//   - Duplicates and pre-reset events return nil (ack without applying)
//   - Transient failures return RetryableError (nack, bus redelivers)
type Worker struct {
	states      *StateStore
	dedup       Deduplicator
	venues      VenueSource
	scores      scorecache.Store
	appender    *Appender
	engine      *Engine
	broadcaster Broadcaster
	config      WorkerConfig
	logger      watermill.LoggerAdapter

	// venueCache keeps GetVenue off the per-event hot path.
	venueCache *cache.Cache

	// Metrics
	messagesReceived  atomic.Int64
	messagesProcessed atomic.Int64
	duplicatesSkipped atomic.Int64
	parseErrors       atomic.Int64
	unknownVenues     atomic.Int64
	resetDrops        atomic.Int64
	lastMessageTime   atomic.Value // stores time.Time
}

// NewWorker creates a scoring worker. States, Dedup, Venues, Scores,
// Appender, and Engine are required; Broadcaster and Logger are optional.
func NewWorker(opts WorkerOptions) (*Worker, error) {
	if opts.States == nil {
		return nil, fmt.Errorf("state store required")
	}
	if opts.Dedup == nil {
		return nil, fmt.Errorf("deduplicator required")
	}
	if opts.Venues == nil {
		return nil, fmt.Errorf("venue source required")
	}
	if opts.Scores == nil {
		return nil, fmt.Errorf("score store required")
	}
	if opts.Appender == nil {
		return nil, fmt.Errorf("appender required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine required")
	}
	if opts.Logger == nil {
		opts.Logger = watermill.NewStdLogger(false, false)
	}
	if opts.Config.VenueCacheTTL <= 0 {
		opts.Config.VenueCacheTTL = DefaultWorkerConfig().VenueCacheTTL
	}

	w := &Worker{
		states:      opts.States,
		dedup:       opts.Dedup,
		venues:      opts.Venues,
		scores:      opts.Scores,
		appender:    opts.Appender,
		engine:      opts.Engine,
		broadcaster: opts.Broadcaster,
		config:      opts.Config,
		logger:      opts.Logger,
		venueCache:  cache.New(opts.Config.VenueCacheTTL),
	}
	w.lastMessageTime.Store(time.Time{})

	return w, nil
}

// Handle processes a single occupancy event message.
// This is the handler function passed to Router.AddConsumerHandler.
func (w *Worker) Handle(msg *message.Message) error {
	startTime := time.Now()
	msgCount := w.messagesReceived.Add(1)
	w.lastMessageTime.Store(startTime)
	metrics.RecordBusConsume()

	event, err := eventbus.DeserializeEvent(msg.Payload)
	if err != nil {
		w.parseErrors.Add(1)
		metrics.RecordBusParseFailed()
		w.logger.Error("Failed to parse message", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		// No point retrying malformed JSON
		return eventbus.NewPermanentError("JSON parse error", err)
	}

	if err := event.Validate(); err != nil {
		w.parseErrors.Add(1)
		metrics.RecordBusParseFailed()
		w.logger.Error("Event failed validation", err, watermill.LogFields{
			"message_uuid": msg.UUID,
			"event_id":     event.EventID,
		})
		return eventbus.NewPermanentError("event validation failed", err)
	}

	venueID, err := uuid.Parse(event.VenueID)
	if err != nil {
		w.parseErrors.Add(1)
		metrics.RecordBusParseFailed()
		return eventbus.NewPermanentError("malformed venue id", err)
	}
	eventID, err := uuid.Parse(event.EventID)
	if err != nil {
		w.parseErrors.Add(1)
		metrics.RecordBusParseFailed()
		return eventbus.NewPermanentError("malformed event id", err)
	}

	logging.Trace().
		Int64("msg_count", msgCount).
		Str("event_id", event.EventID).
		Str("venue_id", event.VenueID).
		Int("delta", event.Delta).
		Msg("WORKER: RECEIVED")

	ctx := context.Background() // Router provides message context via msg.Context()
	if msgCtx := msg.Context(); msgCtx != nil {
		ctx = msgCtx
	}

	// Nonce dedup. IsDuplicate both checks AND records if new, so a
	// concurrent delivery of the same nonce cannot also pass. Every
	// retryable failure past this point must release the mark with
	// forgetNonce, or the nacked message's redelivery would be
	// swallowed as a duplicate and the delta lost.
	dup, err := w.dedup.IsDuplicate(ctx, event.DedupKey())
	if err != nil {
		w.logger.Error("Dedup check failed", err, watermill.LogFields{
			"event_id": event.EventID,
		})
		return eventbus.NewRetryableError("dedup check failed", err)
	}
	if dup {
		dupCount := w.duplicatesSkipped.Add(1)
		metrics.RecordBusDeduplicated("nonce")
		logging.Trace().
			Int64("msg_count", msgCount).
			Str("event_id", event.EventID).
			Int64("total_dupes", dupCount).
			Msg("WORKER: DEDUPLICATED")
		// Acknowledge without applying - expected behavior, not an error
		return nil
	}

	// Venue metadata for capacity and the snapshot's display fields
	venue, err := w.lookupVenue(ctx, venueID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Venue deleted between ingest and processing
			w.unknownVenues.Add(1)
			return eventbus.NewPermanentError("unknown venue", err)
		}
		w.forgetNonce(ctx, event)
		return eventbus.NewRetryableError("venue lookup failed", err)
	}

	// Apply via the owning lane
	state, err := w.states.Apply(ctx, venueID, event.Delta, event.OccurredAt, event.ReceivedAt)
	if err != nil {
		if errors.Is(err, ErrEventBeforeReset) {
			// The event's effects were wiped with the reset; applying it
			// now would resurrect pre-reset occupancy. Ack and drop.
			drops := w.resetDrops.Add(1)
			logging.Debug().
				Str("event_id", event.EventID).
				Int64("total_drops", drops).
				Msg("WORKER: DROPPED PRE-RESET EVENT")
			return nil
		}
		w.logger.Error("State apply failed", err, watermill.LogFields{
			"event_id": event.EventID,
			"venue_id": event.VenueID,
		})
		w.forgetNonce(ctx, event)
		return eventbus.NewRetryableError("state apply failed", err)
	}
	metrics.RecordEventApplied(state.Raw < 0)

	// Publish the snapshot. Failures here are logged, not retried: the
	// accumulator already moved, and a nack would skip the ledger row on
	// redelivery because the nonce is marked seen.
	snap := w.publishSnapshot(ctx, venue, state)
	if snap == nil {
		// A reset wiped this event's apply between the state store and
		// here. Ack without the ledger row; the row would describe
		// occupancy that no longer exists.
		w.resetDrops.Add(1)
		return nil
	}

	txn := &models.Transaction{
		EventID:    eventID,
		VenueID:    venueID,
		Delta:      event.Delta,
		Nonce:      event.Nonce,
		OccurredAt: event.OccurredAt,
		ReceivedAt: event.ReceivedAt,
		Source:     event.Source,
	}
	if err := w.appender.Append(ctx, txn); err != nil {
		// The delta is already in the lane with no ledger row to back
		// it. Take it back out so the redelivery applies once, then
		// release the nonce and nack. ErrEventBeforeReset on the revert
		// means a reset already wiped the lane; nothing left to undo.
		if _, revertErr := w.states.Apply(ctx, venueID, -event.Delta, event.OccurredAt, event.ReceivedAt); revertErr != nil && !errors.Is(revertErr, ErrEventBeforeReset) {
			w.logger.Error("State revert failed after append error", revertErr, watermill.LogFields{
				"event_id": event.EventID,
			})
		}
		w.forgetNonce(ctx, event)
		w.logger.Error("Failed to append transaction", err, watermill.LogFields{
			"event_id": event.EventID,
		})
		return eventbus.NewRetryableError("append failed", err)
	}

	// DETERMINISM: with SyncFlush the ledger write completes before the
	// message is acked, trading latency for zero audit-row loss.
	if w.config.SyncFlush {
		if err := w.appender.Flush(ctx); err != nil {
			// The row is already buffered (Append succeeded) and a
			// failed flush restores its chunk, so the mark stays: the
			// redelivery acks as a duplicate while the background
			// flusher retries the chunk. Forgetting here would let the
			// redelivery append a second row.
			w.logger.Error("Failed to flush transaction synchronously", err, watermill.LogFields{
				"event_id": event.EventID,
			})
			return eventbus.NewRetryableError("sync flush failed", err)
		}
	}

	processedCount := w.messagesProcessed.Add(1)
	metrics.RecordBusProcessed()
	metrics.RecordBusProcessingDuration(time.Since(startTime))

	logging.Trace().
		Int64("msg_count", msgCount).
		Str("event_id", event.EventID).
		Str("venue_id", event.VenueID).
		Int64("occupancy", state.Occupancy()).
		Int("score", snap.Score).
		Int64("processed", processedCount).
		Msg("WORKER: APPLIED")

	return nil
}

// forgetNonce releases the event's dedup mark ahead of a nack so the
// redelivery is processed instead of dropped as a duplicate.
func (w *Worker) forgetNonce(ctx context.Context, event *eventbus.OccupancyEvent) {
	if err := w.dedup.Forget(ctx, event.DedupKey()); err != nil {
		w.logger.Error("Dedup unmark failed, redelivery may be dropped", err, watermill.LogFields{
			"event_id": event.EventID,
		})
	}
}

// lookupVenue returns venue metadata, cached for VenueCacheTTL.
// Negative results are not cached: an unknown venue is permanent-failed
// anyway, and caching them would let a re-registered venue stay invisible
// for a TTL window.
func (w *Worker) lookupVenue(ctx context.Context, venueID uuid.UUID) (*models.Venue, error) {
	key := venueID.String()
	if cached, ok := w.venueCache.Get(key); ok {
		if venue, ok := cached.(*models.Venue); ok {
			metrics.RecordCacheHit("venue_meta")
			return venue, nil
		}
	}
	metrics.RecordCacheMiss("venue_meta")

	venue, err := w.venues.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	w.venueCache.Set(key, venue)
	return venue, nil
}

// InvalidateVenue drops a venue's cached metadata. The API layer calls
// this when a venue is updated or deleted so capacity changes reach the
// scoring path immediately.
func (w *Worker) InvalidateVenue(venueID uuid.UUID) {
	w.venueCache.Delete(venueID.String())
}

// publishSnapshot computes the score, stores the snapshot, updates the
// gauge, and broadcasts. Returns nil without publishing anything when
// the state predates the last reset barrier.
func (w *Worker) publishSnapshot(ctx context.Context, venue *models.Venue, state VenueState) *models.VenueScore {
	// A reset may have landed between this event's apply and now. State
	// applied before the barrier was wiped; publishing it would push
	// pre-reset occupancy back into the cleared cache.
	if !state.UpdatedAt.IsZero() && state.UpdatedAt.Before(w.states.Barrier()) {
		return nil
	}

	// Freshness is measured at the apply timestamp, so a snapshot can be
	// recomputed from its own fields. The decay refresher re-ages it
	// against the current clock on its own cadence.
	score := w.engine.ComputeScore(state.Occupancy(), venue.Capacity, state.UpdatedAt.Sub(state.LastEventAt))

	snap := &models.VenueScore{
		VenueID:          venue.ID,
		Name:             venue.Name,
		Latitude:         venue.Latitude,
		Longitude:        venue.Longitude,
		Capacity:         venue.Capacity,
		CurrentOccupancy: state.Occupancy(),
		Score:            score,
		LastEventAt:      state.LastEventAt,
		UpdatedAt:        state.UpdatedAt,
	}

	if err := w.scores.Put(ctx, snap); err != nil {
		logging.Warn().
			Err(err).
			Str("venue_id", venue.ID.String()).
			Msg("WORKER: Score snapshot write failed")
	}
	metrics.SetVenueScore(venue.ID.String(), score, state.Occupancy())

	if w.broadcaster != nil {
		w.broadcaster.BroadcastScoreUpdate(snap)
	}

	return snap
}

// Rebuild restores every venue's accumulator and snapshot from the
// ledger. Call it at startup before the bus consumer starts, and after a
// reset's truncate while the lanes are paused; both are states in which
// StateStore.Restore is legal.
func (w *Worker) Rebuild(ctx context.Context) error {
	venues, err := w.venues.ListVenues(ctx)
	if err != nil {
		return fmt.Errorf("list venues: %w", err)
	}

	for _, venue := range venues {
		raw, lastEventAt, err := w.venues.SumDeltas(ctx, venue.ID)
		if err != nil {
			return fmt.Errorf("sum deltas for venue %s: %w", venue.ID, err)
		}
		if err := w.states.Restore(venue.ID, raw, lastEventAt); err != nil {
			return fmt.Errorf("restore venue %s: %w", venue.ID, err)
		}

		state := VenueState{
			VenueID:     venue.ID,
			Raw:         raw,
			LastEventAt: lastEventAt,
			UpdatedAt:   time.Now().UTC(),
		}
		w.publishSnapshot(ctx, venue, state)
	}

	logging.Info().
		Int("venues", len(venues)).
		Msg("WORKER: State rebuilt from ledger")
	return nil
}

// StartCleanup launches the dedup store's maintenance loop.
func (w *Worker) StartCleanup(ctx context.Context) {
	w.dedup.StartCleanup(ctx)
}

// Stats returns current worker statistics.
func (w *Worker) Stats() WorkerStats {
	var lastTime time.Time
	if t, ok := w.lastMessageTime.Load().(time.Time); ok {
		lastTime = t
	}

	return WorkerStats{
		MessagesReceived:  w.messagesReceived.Load(),
		MessagesProcessed: w.messagesProcessed.Load(),
		DuplicatesSkipped: w.duplicatesSkipped.Load(),
		ParseErrors:       w.parseErrors.Load(),
		UnknownVenues:     w.unknownVenues.Load(),
		ResetDrops:        w.resetDrops.Load(),
		LastMessageTime:   lastTime,
	}
}

// WorkerStats holds runtime statistics.
type WorkerStats struct {
	MessagesReceived  int64
	MessagesProcessed int64
	DuplicatesSkipped int64
	ParseErrors       int64
	UnknownVenues     int64
	ResetDrops        int64
	LastMessageTime   time.Time
}
