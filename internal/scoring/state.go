// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scoring

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/logging"
)

const (
	// DefaultLanes is the fallback lane count when configuration
	// supplies none.
	DefaultLanes = 8

	// laneQueueDepth bounds how many apply requests a lane buffers.
	// A full queue pushes backpressure onto the bus consumer instead of
	// growing memory without bound.
	laneQueueDepth = 64
)

var (
	// ErrNotRunning is returned when Apply or Pause is called before
	// Run has started the lanes, or after they have shut down.
	ErrNotRunning = errors.New("state store is not running")

	// ErrEventBeforeReset is returned for events received before the
	// last reset barrier. Such events were wiped together with the
	// pre-reset ledger; the worker acks and drops them.
	ErrEventBeforeReset = errors.New("event predates the reset barrier")
)

// VenueState is one venue's occupancy accumulator.
//
// Raw is signed: deltas apply without clamping so that a +10/-10 pair
// redelivered out of order still nets to zero instead of sticking at +10.
// Readers see the clamped value via Occupancy.
type VenueState struct {
	VenueID     uuid.UUID
	Raw         int64
	LastEventAt time.Time
	UpdatedAt   time.Time
}

// Occupancy returns the externally visible occupancy, never negative.
func (s *VenueState) Occupancy() int64 {
	if s.Raw < 0 {
		return 0
	}
	return s.Raw
}

// StateStore owns every venue's accumulator, sharded across lane
// goroutines. Each venue ID hashes to exactly one lane, and only that
// lane's goroutine touches the venue's state; events for one venue apply
// strictly in the order their Apply calls enqueue.
//
// Lifecycle: NewStateStore builds the lanes, Run starts them and blocks
// until the context is canceled (suture-compatible), Pause/Zero/Resume
// implement the reset barrier.
type StateStore struct {
	lanes []*lane

	running atomic.Bool

	// barrier mirrors the lanes' per-lane barrier for readers outside
	// the pause handshake. Stores time.Time.
	barrier atomic.Value

	// pauseMu serializes Pause/Resume/Zero so the reset controller's
	// barrier sequence cannot interleave with another caller's.
	pauseMu sync.Mutex
	paused  bool
	resume  chan struct{}
}

type lane struct {
	id       int
	requests chan *applyRequest
	pauses   chan *pauseRequest

	// states and barrier are owned by the lane goroutine while it runs.
	// Zero and Restore write them only while the lane is parked (or
	// before Run), which the pause handshake makes safe.
	states  map[uuid.UUID]*VenueState
	barrier time.Time
}

type applyRequest struct {
	venueID    uuid.UUID
	delta      int
	occurredAt time.Time
	receivedAt time.Time
	read       bool
	reply      chan applyResult
}

type applyResult struct {
	state VenueState
	err   error
}

type pauseRequest struct {
	// parked is closed by the lane once it has drained its queue and
	// stopped consuming requests.
	parked chan struct{}
	// resume is closed by the store to release every parked lane.
	resume chan struct{}
}

// NewStateStore creates a store with the given lane count.
// Non-positive counts fall back to DefaultLanes.
func NewStateStore(laneCount int) *StateStore {
	if laneCount <= 0 {
		laneCount = DefaultLanes
	}

	lanes := make([]*lane, laneCount)
	for i := range lanes {
		lanes[i] = &lane{
			id:       i,
			requests: make(chan *applyRequest, laneQueueDepth),
			pauses:   make(chan *pauseRequest, 1),
			states:   make(map[uuid.UUID]*VenueState),
		}
	}

	return &StateStore{lanes: lanes}
}

// Run starts the lane goroutines and blocks until ctx is canceled.
// The supervisor tree runs it as a service and restarts it after a
// panic; accumulated state survives restarts because the maps live on
// the lane structs, not the goroutines.
func (s *StateStore) Run(ctx context.Context) error {
	if s.running.Swap(true) {
		return errors.New("state store already running")
	}
	defer s.running.Store(false)

	logging.Info().
		Int("lanes", len(s.lanes)).
		Msg("STATE: Lanes started")

	var wg sync.WaitGroup
	for _, l := range s.lanes {
		wg.Add(1)
		go func(l *lane) {
			defer wg.Done()
			l.run(ctx)
		}(l)
	}
	wg.Wait()

	logging.Info().Msg("STATE: Lanes stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *StateStore) String() string {
	return "state-store"
}

// Apply routes a delta to the venue's owning lane and returns a copy of
// the resulting state. It blocks until the lane has applied the event,
// the context is canceled, or the store reports it is not running.
//
// receivedAt is the gateway arrival time and feeds the reset barrier: an
// event received before the last reset is rejected with
// ErrEventBeforeReset instead of resurrecting pre-reset occupancy.
func (s *StateStore) Apply(ctx context.Context, venueID uuid.UUID, delta int, occurredAt, receivedAt time.Time) (VenueState, error) {
	return s.dispatch(ctx, &applyRequest{
		venueID:    venueID,
		delta:      delta,
		occurredAt: occurredAt,
		receivedAt: receivedAt,
		reply:      make(chan applyResult, 1),
	})
}

// Get returns a copy of the venue's current state via its owning lane.
// A venue that has never seen an event returns a zero-valued state.
func (s *StateStore) Get(ctx context.Context, venueID uuid.UUID) (VenueState, error) {
	return s.dispatch(ctx, &applyRequest{
		venueID: venueID,
		read:    true,
		reply:   make(chan applyResult, 1),
	})
}

func (s *StateStore) dispatch(ctx context.Context, req *applyRequest) (VenueState, error) {
	if !s.running.Load() {
		return VenueState{}, ErrNotRunning
	}

	l := s.laneFor(req.venueID)
	select {
	case l.requests <- req:
	case <-ctx.Done():
		return VenueState{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.state, res.err
	case <-ctx.Done():
		return VenueState{}, ctx.Err()
	}
}

// Pause drains every lane's queued work and parks the lanes. It returns
// once all lanes have quiesced or the context expires; on timeout the
// already-parked lanes are released again so a failed reset never leaves
// the store half-stopped. Pause is idempotent.
func (s *StateStore) Pause(ctx context.Context) error {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()

	if s.paused {
		return nil
	}
	if !s.running.Load() {
		return ErrNotRunning
	}

	resume := make(chan struct{})
	parked := make([]chan struct{}, 0, len(s.lanes))

	for _, l := range s.lanes {
		pr := &pauseRequest{parked: make(chan struct{}), resume: resume}
		select {
		case l.pauses <- pr:
			parked = append(parked, pr.parked)
		case <-ctx.Done():
			close(resume)
			return fmt.Errorf("pause lane %d: %w", l.id, ctx.Err())
		}
	}

	for i, p := range parked {
		select {
		case <-p:
		case <-ctx.Done():
			close(resume)
			return fmt.Errorf("lane %d did not quiesce: %w", i, ctx.Err())
		}
	}

	s.paused = true
	s.resume = resume

	logging.Debug().Int("lanes", len(s.lanes)).Msg("STATE: Lanes paused")
	return nil
}

// Resume releases every parked lane. Safe to call when not paused.
func (s *StateStore) Resume() {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()

	if !s.paused {
		return
	}

	close(s.resume)
	s.paused = false
	s.resume = nil

	logging.Debug().Msg("STATE: Lanes resumed")
}

// Zero wipes every accumulator and records the reset barrier time.
// The store must be paused: parked lanes are the only state in which
// another goroutine may touch the lane-owned maps.
//
// After Resume, any apply whose receivedAt predates the barrier is
// rejected with ErrEventBeforeReset. That closes the race where a
// pre-reset event is already past the dedup check when the reset lands:
// without the barrier it would apply pre-reset occupancy to the fresh
// accumulators.
func (s *StateStore) Zero(barrier time.Time) error {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()

	if !s.paused {
		return errors.New("state store must be paused before zeroing")
	}

	for _, l := range s.lanes {
		l.states = make(map[uuid.UUID]*VenueState)
		l.barrier = barrier
	}
	s.barrier.Store(barrier)

	logging.Info().Time("barrier", barrier).Msg("STATE: Accumulators zeroed")
	return nil
}

// Barrier returns the most recent reset barrier, or the zero time if no
// reset has happened. The worker checks it before publishing a snapshot
// so a handler that applied its event just before a pause does not push
// pre-reset state into the score cache afterwards.
func (s *StateStore) Barrier() time.Time {
	if v := s.barrier.Load(); v != nil {
		return v.(time.Time)
	}
	return time.Time{}
}

// Restore seeds one venue's accumulator, bypassing the lanes. Used to
// rebuild state from the ledger at startup (before Run) and to reseed
// after a reset (while paused); any other time it returns an error
// because the owning lane may be mutating the same map.
func (s *StateStore) Restore(venueID uuid.UUID, raw int64, lastEventAt time.Time) error {
	if s.running.Load() {
		s.pauseMu.Lock()
		paused := s.paused
		s.pauseMu.Unlock()
		if !paused {
			return errors.New("restore requires a stopped or paused state store")
		}
	}

	l := s.laneFor(venueID)
	l.states[venueID] = &VenueState{
		VenueID:     venueID,
		Raw:         raw,
		LastEventAt: lastEventAt,
		UpdatedAt:   time.Now().UTC(),
	}
	return nil
}

// laneFor pins a venue to its owning lane by FNV-1a hash of the raw ID.
func (s *StateStore) laneFor(venueID uuid.UUID) *lane {
	h := fnv.New32a()
	h.Write(venueID[:]) //nolint:errcheck // fnv.Write never fails
	return s.lanes[int(h.Sum32())%len(s.lanes)]
}

func (l *lane) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-l.requests:
			l.handle(req)
		case pr := <-l.pauses:
			// Queued requests were handed over before the barrier;
			// they land on pre-reset state, which the reset wipes.
			l.drain()
			close(pr.parked)
			select {
			case <-pr.resume:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (l *lane) drain() {
	for {
		select {
		case req := <-l.requests:
			l.handle(req)
		default:
			return
		}
	}
}

func (l *lane) handle(req *applyRequest) {
	if !req.receivedAt.IsZero() && req.receivedAt.Before(l.barrier) {
		req.reply <- applyResult{err: ErrEventBeforeReset}
		return
	}

	st, ok := l.states[req.venueID]

	if req.read {
		if !ok {
			req.reply <- applyResult{state: VenueState{VenueID: req.venueID}}
			return
		}
		req.reply <- applyResult{state: *st}
		return
	}

	if !ok {
		st = &VenueState{VenueID: req.venueID}
		l.states[req.venueID] = st
	}

	st.Raw += int64(req.delta)
	// Out-of-order redelivery must not rewind recency: keep the max.
	if req.occurredAt.After(st.LastEventAt) {
		st.LastEventAt = req.occurredAt
	}
	st.UpdatedAt = time.Now().UTC()

	req.reply <- applyResult{state: *st}
}
