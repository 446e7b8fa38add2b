// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

// Package database provides the DuckDB-backed relational store for
// VenuePulse.
//
// # Overview
//
// This package is the durable complement to the in-memory scoring state.
// It holds everything that must survive a restart:
//
//   - venues: The venue registry with per-venue HMAC secrets
//   - users: Accounts with bcrypt password hashes and roles
//   - transactions: The append-only occupancy ledger written by the
//     scoring worker (source of truth for replaying accumulators)
//   - dlq_entries: Dead-lettered events captured for operator inspection
//
// # Architecture
//
// The package is organized into domain-specific files:
//
//   - database.go: Connection lifecycle, pool configuration, checkpointing
//   - schema.go: Table and index creation
//   - crud_venues.go: Venue registry operations
//   - crud_users.go: Account operations
//   - crud_transactions.go: Ledger append, queries, and reset truncation
//   - dlq.go: Dead-letter persistence (implements eventbus.DLQStore)
//   - seed.go: Demo venue and admin bootstrap
//
// # Database Technology
//
// DuckDB (github.com/duckdb/duckdb-go/v2) is used rather than a
// client-server database so the binary stays self-contained. The ledger
// workload is append-heavy with occasional range scans per venue, which
// the columnar layout handles well.
//
// Two DuckDB-specific patterns appear throughout:
//
//  1. Row IDs are assigned manually via MAX(id)+1 under a write mutex,
//     because DuckDB does not support IDENTITY columns with PRIMARY KEY.
//  2. A CHECKPOINT runs after schema creation and before close to flush
//     the WAL, keeping restarts from replaying DDL.
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	venue, err := db.GetVenue(ctx, venueID)
//
// All exported methods accept a context and apply a 30-second default
// timeout when the caller's context carries no deadline.
package database
