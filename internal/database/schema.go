// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

/*
schema.go - Database Schema Management

This file manages the DuckDB schema including table creation and index
management.

Tables:
  - venues: Venue registry (capacity, coordinates, per-venue HMAC secret)
  - users: Accounts with bcrypt password hashes and roles
  - transactions: Append-only occupancy ledger written by the scoring worker
  - dlq_entries: Dead-lettered events captured by the poison recorder

Schema Strategy:
All columns are defined in the initial CREATE TABLE statements. There is
no migration framework; the schema is small and additive changes can use
ALTER TABLE IF NOT EXISTS guards when they become necessary.

Index Strategy:
  - transactions(venue_id, occurred_at DESC): the ledger is always read
    per venue in reverse time order (recent activity, replay)
  - users(email): login lookup
  - dlq_entries(failed_at): operator listing, newest first
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables.
// DuckDB doesn't support multi-statement execution, so each statement
// runs separately.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS venues (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			capacity INTEGER NOT NULL,
			secret TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'viewer',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Note: ID is managed manually (MAX(id)+1) since DuckDB doesn't
		// support IDENTITY with PRIMARY KEY
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGINT PRIMARY KEY,
			event_id UUID NOT NULL,
			venue_id UUID NOT NULL,
			delta INTEGER NOT NULL,
			nonce TEXT,
			occurred_at TIMESTAMP NOT NULL,
			received_at TIMESTAMP NOT NULL,
			source TEXT,
			recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS dlq_entries (
			id BIGINT PRIMARY KEY,
			event_id TEXT,
			topic TEXT NOT NULL,
			payload TEXT NOT NULL,
			reason TEXT NOT NULL,
			failed_at TIMESTAMP NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// createIndexes creates indexes for common query patterns.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_txn_venue_time ON transactions(venue_id, occurred_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_txn_event_id ON transactions(event_id);`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`,
		`CREATE INDEX IF NOT EXISTS idx_dlq_failed_at ON dlq_entries(failed_at DESC);`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}
