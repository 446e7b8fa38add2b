// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/models"
)

// InsertTransaction appends one row to the occupancy ledger.
// The scoring worker calls this for every event it applies; the row id is
// assigned here and written back to the transaction.
func (db *DB) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if txn == nil {
		return fmt.Errorf("transaction cannot be nil")
	}
	if txn.RecordedAt.IsZero() {
		txn.RecordedAt = time.Now().UTC()
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	id, err := db.nextID(ctx, "transactions")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (id, event_id, venue_id, delta, nonce, occurred_at, received_at, source, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = db.conn.ExecContext(ctx, query,
		id, txn.EventID, txn.VenueID, txn.Delta, nullableString(txn.Nonce),
		txn.OccurredAt, txn.ReceivedAt, nullableString(txn.Source), txn.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	txn.ID = id
	return nil
}

// InsertTransactions appends a batch of ledger rows in one statement.
// The batch appender flushes through here; ids are assigned consecutively
// under the write lock and written back to the rows. On error no row of
// the batch is persisted.
func (db *DB) InsertTransactions(ctx context.Context, txns []*models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	firstID, err := db.nextID(ctx, "transactions")
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO transactions (id, event_id, venue_id, delta, nonce, occurred_at, received_at, source, recorded_at) VALUES ")

	args := make([]interface{}, 0, len(txns)*9)
	for i, txn := range txns {
		if txn == nil {
			return fmt.Errorf("transaction %d cannot be nil", i)
		}
		if txn.RecordedAt.IsZero() {
			txn.RecordedAt = now
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			firstID+int64(i), txn.EventID, txn.VenueID, txn.Delta, nullableString(txn.Nonce),
			txn.OccurredAt, txn.ReceivedAt, nullableString(txn.Source), txn.RecordedAt,
		)
	}

	if _, err := db.conn.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to insert transaction batch: %w", err)
	}

	for i, txn := range txns {
		txn.ID = firstID + int64(i)
	}
	return nil
}

// ListTransactions returns ledger rows for a venue, newest first.
// The time range is optional: zero values disable the corresponding bound.
// Limit is capped by the caller (API layer enforces pagination bounds).
func (db *DB) ListTransactions(ctx context.Context, venueID uuid.UUID, since, until time.Time, limit, offset int) ([]*models.Transaction, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, event_id, venue_id, delta, nonce, occurred_at, received_at, source, recorded_at
		FROM transactions
		WHERE venue_id = ?`
	args := []interface{}{venueID}

	if !since.IsZero() {
		query += " AND occurred_at >= ?"
		args = append(args, since)
	}
	if !until.IsZero() {
		query += " AND occurred_at <= ?"
		args = append(args, until)
	}

	query += " ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn := &models.Transaction{}
		var nonce, source sql.NullString
		err := rows.Scan(
			&txn.ID, &txn.EventID, &txn.VenueID, &txn.Delta, &nonce,
			&txn.OccurredAt, &txn.ReceivedAt, &source, &txn.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if nonce.Valid {
			txn.Nonce = nonce.String
		}
		if source.Valid {
			txn.Source = source.String
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

// CountTransactions returns the ledger row count for a venue within the
// optional time range.
func (db *DB) CountTransactions(ctx context.Context, venueID uuid.UUID, since, until time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := "SELECT COUNT(*) FROM transactions WHERE venue_id = ?"
	args := []interface{}{venueID}

	if !since.IsZero() {
		query += " AND occurred_at >= ?"
		args = append(args, since)
	}
	if !until.IsZero() {
		query += " AND occurred_at <= ?"
		args = append(args, until)
	}

	var count int64
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// TotalTransactions returns the size of the whole ledger.
func (db *DB) TotalTransactions(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// SumDeltas replays the ledger for a venue, returning the signed sum of
// all deltas and the occurrence time of the newest row. Used to rebuild
// the in-memory accumulator after a restart.
func (db *DB) SumDeltas(ctx context.Context, venueID uuid.UUID) (int64, time.Time, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var sum sql.NullInt64
	var lastAt sql.NullTime
	query := "SELECT SUM(delta), MAX(occurred_at) FROM transactions WHERE venue_id = ?"
	if err := db.conn.QueryRowContext(ctx, query, venueID).Scan(&sum, &lastAt); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to sum deltas: %w", err)
	}

	var last time.Time
	if lastAt.Valid {
		last = lastAt.Time
	}
	return sum.Int64, last, nil
}

// TruncateTransactions deletes every ledger row. Only the admin reset
// calls this, with the scoring worker paused.
// Returns the number of rows removed.
func (db *DB) TruncateTransactions(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	result, err := db.conn.ExecContext(ctx, "DELETE FROM transactions")
	if err != nil {
		return 0, fmt.Errorf("failed to truncate transactions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check truncate result: %w", err)
	}

	// Reclaim file space and flush the WAL while the pipeline is paused.
	if err := db.Checkpoint(ctx); err != nil {
		return affected, err
	}

	return affected, nil
}

// nullableString converts an empty string to a NULL parameter.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
