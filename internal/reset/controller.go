// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package reset

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/metrics"
)

// DefaultTimeout bounds a full reset when the config does not say
// otherwise. Pausing the lanes is the only step that can legitimately
// take long, and it drains in milliseconds unless the pipeline is wedged.
const DefaultTimeout = 30 * time.Second

// ErrResetInFlight is returned when Reset is called while another reset
// is still running. The API maps it to 409.
var ErrResetInFlight = errors.New("a reset is already in progress")

// StateStore is the accumulator surface the reset drives.
// Implemented by scoring.StateStore.
type StateStore interface {
	// Pause drains and parks the apply lanes.
	Pause(ctx context.Context) error
	// Resume releases the lanes. Safe to call when not paused.
	Resume()
	// Zero wipes every accumulator and records the barrier time.
	Zero(barrier time.Time) error
}

// LedgerAppender is the buffered ledger writer surface the reset drives.
// Implemented by scoring.Appender.
type LedgerAppender interface {
	// DiscardBefore makes later flushes drop rows received before t.
	DiscardBefore(t time.Time)
	// Flush drains the buffer synchronously.
	Flush(ctx context.Context) error
}

// Ledger is the slice of the database layer the reset needs.
// Implemented by database.DB.
type Ledger interface {
	TruncateTransactions(ctx context.Context) (int64, error)
	CountVenues(ctx context.Context) (int64, error)
}

// ScoreCache clears venue snapshots. Implemented by scorecache.Store.
type ScoreCache interface {
	Clear(ctx context.Context) error
}

// DedupStore clears the nonce window. Implemented by scoring.Deduplicator.
type DedupStore interface {
	Clear(ctx context.Context) error
}

// EventStream is the bus stream surface the reset needs.
// Implemented by eventbus.StreamInitializer.
type EventStream interface {
	// LastSequence returns the newest sequence in the stream.
	LastSequence(ctx context.Context) (uint64, error)
	// PurgeUpTo removes messages at or below the given sequence.
	PurgeUpTo(ctx context.Context, seq uint64) error
}

// Rebuilder reseeds accumulators and snapshots from the ledger.
// Implemented by scoring.Worker.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Broadcaster announces a finished reset to websocket clients.
// Implemented by websocket.Hub.
type Broadcaster interface {
	BroadcastResetCompleted(venuesReset int, durationMs int64)
}

// Options wires the controller's collaborators.
type Options struct {
	States      StateStore
	Appender    LedgerAppender
	Ledger      Ledger
	Scores      ScoreCache
	Dedup       DedupStore
	Stream      EventStream
	Rebuilder   Rebuilder
	Broadcaster Broadcaster // optional

	// Timeout bounds the whole reset. Non-positive selects DefaultTimeout.
	Timeout time.Duration
}

// Result summarizes a completed reset for the API response.
type Result struct {
	VenuesReset         int       `json:"venues_reset"`
	TransactionsDeleted int64     `json:"transactions_deleted"`
	Barrier             time.Time `json:"barrier"`
	DurationMS          int64     `json:"duration_ms"`
}

// Controller wipes all live and persisted occupancy state in one
// operation: accumulators, snapshot cache, dedup window, ledger rows,
// and pending bus messages. Venue registrations and user accounts
// survive; only occupancy-derived state is dropped.
//
// One reset runs at a time. A second call while one is in flight fails
// fast with ErrResetInFlight instead of queueing, because two
// interleaved barrier sequences could resurrect state the first wipe
// already dropped.
type Controller struct {
	states      StateStore
	appender    LedgerAppender
	ledger      Ledger
	scores      ScoreCache
	dedup       DedupStore
	stream      EventStream
	rebuilder   Rebuilder
	broadcaster Broadcaster
	timeout     time.Duration

	inFlight atomic.Bool
}

// NewController creates a reset controller. Everything except the
// broadcaster is required.
func NewController(opts Options) (*Controller, error) {
	if opts.States == nil {
		return nil, fmt.Errorf("state store required")
	}
	if opts.Appender == nil {
		return nil, fmt.Errorf("ledger appender required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if opts.Scores == nil {
		return nil, fmt.Errorf("score cache required")
	}
	if opts.Dedup == nil {
		return nil, fmt.Errorf("dedup store required")
	}
	if opts.Stream == nil {
		return nil, fmt.Errorf("event stream required")
	}
	if opts.Rebuilder == nil {
		return nil, fmt.Errorf("rebuilder required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Controller{
		states:      opts.States,
		appender:    opts.Appender,
		ledger:      opts.Ledger,
		scores:      opts.Scores,
		dedup:       opts.Dedup,
		stream:      opts.Stream,
		rebuilder:   opts.Rebuilder,
		broadcaster: opts.Broadcaster,
		timeout:     opts.Timeout,
	}, nil
}

// InProgress reports whether a reset is currently running.
func (c *Controller) InProgress() bool {
	return c.inFlight.Load()
}

// Reset wipes occupancy state and returns what was dropped.
//
// The first failing step aborts the reset and names itself in the
// returned error. Nothing is rolled back: every step either removes
// pre-reset state or refuses stale writes of it, so rerunning a
// half-finished reset converges on the same empty end state.
func (c *Controller) Reset(ctx context.Context) (*Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		metrics.RecordReset("conflict", 0)
		return nil, ErrResetInFlight
	}
	defer c.inFlight.Store(false)

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logging.Info().Dur("timeout", c.timeout).Msg("RESET: Starting")

	result, err := c.run(ctx, start)
	if err != nil {
		elapsed := time.Since(start)
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordReset("timeout", elapsed)
		} else {
			metrics.RecordReset("error", elapsed)
		}
		logging.Error().Err(err).Dur("elapsed", elapsed).Msg("RESET: Failed")
		return nil, err
	}

	metrics.RecordReset("completed", time.Since(start))
	logging.Info().
		Int("venues", result.VenuesReset).
		Int64("transactions_deleted", result.TransactionsDeleted).
		Int64("duration_ms", result.DurationMS).
		Time("barrier", result.Barrier).
		Msg("RESET: Completed")
	return result, nil
}

// run executes the barrier sequence. The order is load-bearing; see the
// comments on each step.
func (c *Controller) run(ctx context.Context, start time.Time) (*Result, error) {
	// Quiesce. Once the lanes are parked nothing mutates accumulator
	// state until Resume. Pause releases any lanes it already parked if
	// the context expires, so a timeout here leaves the store running.
	if err := c.states.Pause(ctx); err != nil {
		return nil, fmt.Errorf("pause state store: %w", err)
	}
	// Error-path guard. The happy path resumes explicitly below, and a
	// second Resume is a no-op.
	defer c.states.Resume()

	// Capture the stream position before taking the barrier. Producers
	// keep publishing throughout the reset; everything at or below this
	// sequence was received before the barrier and gets purged, while
	// later messages survive and apply after Resume.
	lastSeq, err := c.stream.LastSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture stream position: %w", err)
	}

	// The barrier. From here on, an event received earlier is pre-reset
	// state: the lanes refuse to apply it, the appender refuses to
	// persist it, and the snapshot floor refuses to cache it.
	barrier := time.Now().UTC()
	if err := c.states.Zero(barrier); err != nil {
		return nil, fmt.Errorf("zero accumulators: %w", err)
	}

	// Settle the appender. Everything it holds predates the barrier and
	// is dropped by the cutoff; the cutoff also catches rows appended
	// later by handlers that were already past their state apply when
	// the lanes paused.
	c.appender.DiscardBefore(barrier)
	if err := c.appender.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush appender: %w", err)
	}

	deleted, err := c.ledger.TruncateTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("truncate transactions: %w", err)
	}

	if err := c.scores.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear score cache: %w", err)
	}
	if err := c.dedup.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear dedup window: %w", err)
	}

	if err := c.stream.PurgeUpTo(ctx, lastSeq); err != nil {
		return nil, fmt.Errorf("purge stream: %w", err)
	}

	// Rebuild zero snapshots from the now-empty ledger while the lanes
	// are still parked, so readers see every venue at zero rather than
	// an empty map. Gauges are reset first; Rebuild re-registers them.
	metrics.ClearVenueGauges()
	if err := c.rebuilder.Rebuild(ctx); err != nil {
		return nil, fmt.Errorf("rebuild state: %w", err)
	}

	venues, err := c.ledger.CountVenues(ctx)
	if err != nil {
		return nil, fmt.Errorf("count venues: %w", err)
	}

	c.states.Resume()

	result := &Result{
		VenuesReset:         int(venues),
		TransactionsDeleted: deleted,
		Barrier:             barrier,
		DurationMS:          time.Since(start).Milliseconds(),
	}
	if c.broadcaster != nil {
		c.broadcaster.BroadcastResetCompleted(result.VenuesReset, result.DurationMS)
	}
	return result, nil
}
