// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/venuepulse/internal/models"
)

// insertTestDLQEntry saves a poisoned event with the given reason.
func insertTestDLQEntry(t *testing.T, db *DB, reason string, failedAt time.Time) *models.DLQEntry {
	t.Helper()
	entry := &models.DLQEntry{
		EventID:  uuid.New().String(),
		Topic:    "occupancy.event.venue-1",
		Payload:  `{"event_id":"bad"}`,
		Reason:   reason,
		FailedAt: failedAt,
	}
	checkNoError(t, db.SaveDLQEntry(context.Background(), entry))
	return entry
}

func TestSaveDLQEntry_AssignsID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	base := testClock()
	first := insertTestDLQEntry(t, db, "unmarshal failed", base)
	second := insertTestDLQEntry(t, db, "validation failed", base.Add(time.Minute))

	checkInt64Equal(t, "first.ID", first.ID, 1)
	checkInt64Equal(t, "second.ID", second.ID, 2)
}

func TestSaveDLQEntry_Nil(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	checkError(t, db.SaveDLQEntry(context.Background(), nil))
}

func TestSaveDLQEntry_DefaultsFailedAt(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	entry := &models.DLQEntry{
		Topic:   "occupancy.event.venue-1",
		Payload: "not json",
		Reason:  "unmarshal failed",
	}
	checkNoError(t, db.SaveDLQEntry(context.Background(), entry))

	if entry.FailedAt.IsZero() {
		t.Error("Expected SaveDLQEntry to set FailedAt")
	}
}

func TestSaveDLQEntry_EmptyEventID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	entry := &models.DLQEntry{
		Topic:    "occupancy.event.venue-1",
		Payload:  "garbage",
		Reason:   "unmarshal failed",
		FailedAt: testClock(),
		// EventID empty: payload was undecodable, stored as NULL
	}
	checkNoError(t, db.SaveDLQEntry(context.Background(), entry))

	entries, err := db.ListDLQEntries(context.Background(), 10, 0)
	checkNoError(t, err)
	checkIntEqual(t, "len(entries)", len(entries), 1)
	checkStringEqual(t, "EventID", entries[0].EventID, "")
}

func TestListDLQEntries_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	base := testClock()
	insertTestDLQEntry(t, db, "oldest", base.Add(-2*time.Hour))
	insertTestDLQEntry(t, db, "middle", base.Add(-time.Hour))
	insertTestDLQEntry(t, db, "newest", base)

	entries, err := db.ListDLQEntries(context.Background(), 10, 0)
	checkNoError(t, err)
	checkIntEqual(t, "len(entries)", len(entries), 3)

	checkStringEqual(t, "entries[0].Reason", entries[0].Reason, "newest")
	checkStringEqual(t, "entries[1].Reason", entries[1].Reason, "middle")
	checkStringEqual(t, "entries[2].Reason", entries[2].Reason, "oldest")
}

func TestListDLQEntries_Pagination(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	base := testClock()
	for i := 0; i < 5; i++ {
		insertTestDLQEntry(t, db, "reason", base.Add(time.Duration(i)*time.Minute))
	}

	page, err := db.ListDLQEntries(context.Background(), 2, 2)
	checkNoError(t, err)
	checkIntEqual(t, "len(page)", len(page), 2)
	checkInt64Equal(t, "page[0].ID", page[0].ID, 3)
	checkInt64Equal(t, "page[1].ID", page[1].ID, 2)
}

func TestCountDLQEntries(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	count, err := db.CountDLQEntries(context.Background())
	checkNoError(t, err)
	checkInt64Equal(t, "count", count, 0)

	insertTestDLQEntry(t, db, "a", testClock())
	insertTestDLQEntry(t, db, "b", testClock().Add(time.Second))

	count, err = db.CountDLQEntries(context.Background())
	checkNoError(t, err)
	checkInt64Equal(t, "count", count, 2)
}

func TestPurgeDLQEntries(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	base := testClock()
	insertTestDLQEntry(t, db, "old", base.Add(-48*time.Hour))
	insertTestDLQEntry(t, db, "recent", base)

	removed, err := db.PurgeDLQEntries(context.Background(), base.Add(-24*time.Hour))
	checkNoError(t, err)
	checkInt64Equal(t, "removed", removed, 1)

	entries, err := db.ListDLQEntries(context.Background(), 10, 0)
	checkNoError(t, err)
	checkIntEqual(t, "len(entries)", len(entries), 1)
	checkStringEqual(t, "entries[0].Reason", entries[0].Reason, "recent")
}
