// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scoring

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/metrics"
	"github.com/tomtom215/venuepulse/internal/models"
)

// TransactionStore defines the interface for persisting ledger rows.
// Implemented by the DuckDB database layer and mock stores in tests.
type TransactionStore interface {
	// InsertTransactions inserts a batch of transactions atomically:
	// either every row of the batch persists or none do.
	InsertTransactions(ctx context.Context, txns []*models.Transaction) error
}

// AppenderConfig holds batching parameters for the ledger appender.
type AppenderConfig struct {
	// BatchSize triggers an async flush when the buffer reaches it, and
	// bounds the rows per insert statement during a flush.
	BatchSize int

	// FlushInterval bounds how long a buffered row waits before the
	// timer flush picks it up. This is the ledger's worst-case lag
	// behind the in-memory accumulators.
	FlushInterval time.Duration
}

// DefaultAppenderConfig returns production defaults.
func DefaultAppenderConfig() AppenderConfig {
	return AppenderConfig{
		BatchSize:     256,
		FlushInterval: time.Second,
	}
}

// AppenderStats holds runtime statistics for monitoring.
type AppenderStats struct {
	TxnsReceived  int64         // Total transactions received via Append
	TxnsFlushed   int64         // Total transactions written to the store
	TxnsDiscarded int64         // Total transactions dropped by the discard cutoff
	FlushCount    int64         // Number of flush operations
	ErrorCount    int64         // Number of failed flushes
	LastFlushTime time.Time     // Time of last successful flush
	LastError     string        // Last error message
	BufferSize    int           // Current buffer size
	AvgFlushTime  time.Duration // Average flush duration
}

// Appender provides batch buffering and periodic flushing of ledger rows.
// The scoring worker appends one transaction per applied event; the
// appender writes them to DuckDB in batches, either when the batch size
// is reached or the flush interval elapses. Rows from a failed flush are
// retained and retried on the next flush.
//
// DETERMINISM: flush operations are serialized via flushMu so timer-based
// and batch-triggered flushes cannot interleave. Row ids are assigned at
// insert time, so interleaved flushes would scramble ledger ordering.
type Appender struct {
	store  TransactionStore
	config AppenderConfig

	// Buffer management
	mu     sync.Mutex
	buffer []*models.Transaction

	// flushMu ensures only one flush runs at a time.
	flushMu sync.Mutex

	// discard, when set, makes flushes drop rows received before it
	// instead of writing them. Stores time.Time.
	discard atomic.Value

	// State management
	closed   atomic.Bool
	started  atomic.Bool
	stopChan chan struct{}
	doneChan chan struct{}
	flushWg  sync.WaitGroup // Tracks in-flight async flushes for graceful shutdown

	// Metrics (atomic for thread-safe reads)
	txnsReceived   atomic.Int64
	txnsFlushed    atomic.Int64
	txnsDiscarded  atomic.Int64
	flushCount     atomic.Int64
	errorCount     atomic.Int64
	lastFlushTime  atomic.Value // stores time.Time
	lastError      atomic.Value // stores string
	totalFlushTime atomic.Int64 // nanoseconds for averaging
}

// NewAppender creates a new Appender with the given store and configuration.
// Returns an error if the store is nil or configuration is invalid.
func NewAppender(store TransactionStore, cfg AppenderConfig) (*Appender, error) {
	if store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("flush interval must be positive")
	}

	a := &Appender{
		store:    store,
		config:   cfg,
		buffer:   make([]*models.Transaction, 0, cfg.BatchSize),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	a.lastFlushTime.Store(time.Time{})
	a.lastError.Store("")

	return a, nil
}

// Start begins the periodic flush timer.
// Must be called to enable interval-based flushing.
// Safe to call multiple times (idempotent).
func (a *Appender) Start(ctx context.Context) error {
	if a.closed.Load() {
		return fmt.Errorf("appender is closed")
	}
	if a.started.Swap(true) {
		return nil // Already started
	}

	go a.flushLoop(ctx)
	return nil
}

// Append adds a transaction to the buffer.
// Returns an error if the appender is closed.
// If the buffer reaches batch size, an async flush is triggered.
func (a *Appender) Append(ctx context.Context, txn *models.Transaction) error {
	if a.closed.Load() {
		return fmt.Errorf("appender is closed")
	}

	a.mu.Lock()
	a.buffer = append(a.buffer, txn)
	bufferSize := len(a.buffer)
	received := a.txnsReceived.Add(1)
	needsFlush := bufferSize >= a.config.BatchSize
	a.mu.Unlock()

	logging.Trace().
		Int64("received", received).
		Str("venue_id", txn.VenueID.String()).
		Int("delta", txn.Delta).
		Int("buffer_size", bufferSize).
		Msg("APPENDER: BUFFERED")

	if needsFlush {
		a.flushWg.Add(1)
		go func() {
			defer a.flushWg.Done()
			// The caller's context belongs to the bus message and is
			// canceled the moment the handler acks. The flush must
			// outlive that, so it runs on a detached context.
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			a.doFlush(flushCtx)
		}()
	}

	return nil
}

// Flush manually flushes all buffered transactions.
// Blocks until the flush completes or errors.
// Also waits for any in-flight async flushes to complete first.
func (a *Appender) Flush(ctx context.Context) error {
	a.flushWg.Wait()
	return a.doFlushSync(ctx)
}

// DiscardBefore sets a cutoff: rows received before it are dropped at
// flush time instead of written. The reset controller sets the cutoff
// to the reset barrier, which closes the last resurrection path - a
// handler that applied its event just before the lanes paused may still
// append the row afterwards, and without the cutoff a later timer flush
// would write that pre-reset row into the freshly truncated ledger.
//
// A later call replaces the cutoff.
func (a *Appender) DiscardBefore(t time.Time) {
	a.discard.Store(t)
	logging.Debug().Time("cutoff", t).Msg("APPENDER: Discard cutoff set")
}

// Close stops the appender and flushes any pending transactions.
// Safe to call multiple times (idempotent).
func (a *Appender) Close() error {
	if a.closed.Swap(true) {
		return nil // Already closed
	}

	// Stop flush loop if running
	if a.started.Load() {
		close(a.stopChan)
		<-a.doneChan
	}

	// Wait for in-flight async flushes so the final flush sees
	// everything they could not persist.
	a.flushWg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.doFlushSync(ctx)
}

// Stats returns current runtime statistics.
func (a *Appender) Stats() AppenderStats {
	a.mu.Lock()
	bufferSize := len(a.buffer)
	a.mu.Unlock()

	var avgFlushTime time.Duration
	if count := a.flushCount.Load(); count > 0 {
		avgFlushTime = time.Duration(a.totalFlushTime.Load() / count)
	}

	var lastFlushTime time.Time
	if t, ok := a.lastFlushTime.Load().(time.Time); ok {
		lastFlushTime = t
	}
	var lastError string
	if e, ok := a.lastError.Load().(string); ok {
		lastError = e
	}

	return AppenderStats{
		TxnsReceived:  a.txnsReceived.Load(),
		TxnsFlushed:   a.txnsFlushed.Load(),
		TxnsDiscarded: a.txnsDiscarded.Load(),
		FlushCount:    a.flushCount.Load(),
		ErrorCount:    a.errorCount.Load(),
		LastFlushTime: lastFlushTime,
		LastError:     lastError,
		BufferSize:    bufferSize,
		AvgFlushTime:  avgFlushTime,
	}
}

// flushLoop runs the periodic flush timer.
//
// Timer flushes use a fresh context with a 30s timeout rather than the
// parent context: the parent only signals shutdown and must not impose
// deadlines on individual flush operations.
func (a *Appender) flushLoop(ctx context.Context) {
	defer close(a.doneChan)

	ticker := time.NewTicker(a.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopChan:
			return
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			a.doFlush(flushCtx)
			cancel()
		}
	}
}

// doFlush performs an async flush (non-blocking).
// Error is logged but not returned since this is async.
func (a *Appender) doFlush(ctx context.Context) {
	if err := a.doFlushSync(ctx); err != nil {
		a.lastError.Store(err.Error())
		logging.Debug().Err(err).Msg("APPENDER: Async flush error")
	}
}

// doFlushSync performs a synchronous flush.
// Returns nil if the buffer is empty or the flush succeeds.
// On error, unflushed transactions are retained in the buffer for retry.
//
// Transactions flush in chunks of BatchSize so a large backlog cannot
// balloon a single DuckDB insert statement.
func (a *Appender) doFlushSync(ctx context.Context) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.mu.Lock()
	if len(a.buffer) == 0 {
		a.mu.Unlock()
		return nil
	}

	// Take ownership of buffer
	txns := a.buffer
	a.buffer = make([]*models.Transaction, 0, a.config.BatchSize)
	a.mu.Unlock()

	if cutoff, ok := a.discard.Load().(time.Time); ok && !cutoff.IsZero() {
		txns = a.dropBeforeCutoff(txns, cutoff)
		if len(txns) == 0 {
			return nil
		}
	}

	logging.Debug().
		Int("count", len(txns)).
		Int("batch_size", a.config.BatchSize).
		Msg("APPENDER: Flushing transactions to store")

	totalFlushed := 0
	totalStart := time.Now()

	for start := 0; start < len(txns); start += a.config.BatchSize {
		end := start + a.config.BatchSize
		if end > len(txns) {
			end = len(txns)
		}
		chunk := txns[start:end]

		chunkStart := time.Now()
		err := a.store.InsertTransactions(ctx, chunk)
		chunkElapsed := time.Since(chunkStart)
		metrics.RecordDBQuery("batch_insert", "transactions", chunkElapsed, err)

		if err != nil {
			// Restore ONLY unflushed transactions to the buffer. Rows
			// appended while this flush ran sit behind them so ledger
			// order is preserved on retry.
			unflushed := txns[start:]
			a.mu.Lock()
			a.buffer = append(unflushed, a.buffer...)
			a.mu.Unlock()

			a.errorCount.Add(1)
			a.lastError.Store(err.Error())
			if totalFlushed > 0 {
				a.txnsFlushed.Add(int64(totalFlushed))
				a.flushCount.Add(1)
			}
			logging.Debug().
				Int("start", start).
				Int("unflushed", len(unflushed)).
				Err(err).
				Msg("APPENDER: Chunk insert failed, restoring unflushed transactions")
			return fmt.Errorf("flush transactions (chunk %d-%d): %w", start, end, err)
		}

		totalFlushed += len(chunk)
	}

	totalElapsed := time.Since(totalStart)
	logging.Debug().
		Int("count", totalFlushed).
		Dur("elapsed", totalElapsed).
		Int("chunks", (len(txns)+a.config.BatchSize-1)/a.config.BatchSize).
		Msg("APPENDER: Flushed all transactions")

	a.txnsFlushed.Add(int64(totalFlushed))
	a.flushCount.Add(1)
	a.totalFlushTime.Add(totalElapsed.Nanoseconds())
	a.lastFlushTime.Store(time.Now())
	a.lastError.Store("")

	return nil
}

// dropBeforeCutoff filters out rows received before the cutoff.
func (a *Appender) dropBeforeCutoff(txns []*models.Transaction, cutoff time.Time) []*models.Transaction {
	kept := txns[:0]
	for _, txn := range txns {
		if txn.ReceivedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, txn)
	}

	if dropped := len(txns) - len(kept); dropped > 0 {
		a.txnsDiscarded.Add(int64(dropped))
		logging.Debug().
			Int("count", dropped).
			Time("cutoff", cutoff).
			Msg("APPENDER: Dropped rows received before discard cutoff")
	}
	return kept
}
