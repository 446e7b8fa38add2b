// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/venuepulse/internal/models"
)

// SaveDLQEntry persists one dead-lettered event. Implements
// eventbus.DLQStore; the poison recorder calls this from its subscriber
// loop and nacks on failure so JetStream redelivers.
func (db *DB) SaveDLQEntry(ctx context.Context, entry *models.DLQEntry) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if entry == nil {
		return fmt.Errorf("dlq entry cannot be nil")
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	id, err := db.nextID(ctx, "dlq_entries")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO dlq_entries (id, event_id, topic, payload, reason, failed_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = db.conn.ExecContext(ctx, query,
		id, nullableString(entry.EventID), entry.Topic,
		entry.Payload, entry.Reason, entry.FailedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dlq entry: %w", err)
	}

	entry.ID = id
	return nil
}

// ListDLQEntries returns dead-lettered events, newest first.
func (db *DB) ListDLQEntries(ctx context.Context, limit, offset int) ([]*models.DLQEntry, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, event_id, topic, payload, reason, failed_at
		FROM dlq_entries
		ORDER BY failed_at DESC, id DESC
		LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query dlq entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.DLQEntry
	for rows.Next() {
		entry := &models.DLQEntry{}
		var eventID sql.NullString
		err := rows.Scan(&entry.ID, &eventID, &entry.Topic, &entry.Payload, &entry.Reason, &entry.FailedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dlq entry: %w", err)
		}
		if eventID.Valid {
			entry.EventID = eventID.String
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dlq entries: %w", err)
	}

	return entries, nil
}

// CountDLQEntries returns the number of dead-lettered events.
func (db *DB) CountDLQEntries(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM dlq_entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count dlq entries: %w", err)
	}
	return count, nil
}

// PurgeDLQEntries removes dead-lettered events older than the cutoff.
// Returns the number of rows removed.
func (db *DB) PurgeDLQEntries(ctx context.Context, olderThan time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	result, err := db.conn.ExecContext(ctx, "DELETE FROM dlq_entries WHERE failed_at < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge dlq entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check purge result: %w", err)
	}
	return affected, nil
}
