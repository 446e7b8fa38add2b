// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/venuepulse/internal/models"
)

// CreateVenue inserts a new venue into the registry.
func (db *DB) CreateVenue(ctx context.Context, venue *models.Venue) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if venue == nil {
		return fmt.Errorf("venue cannot be nil")
	}
	if venue.ID == uuid.Nil {
		venue.ID = uuid.New()
	}

	query := `
		INSERT INTO venues (id, name, latitude, longitude, capacity, secret, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		venue.ID, venue.Name, venue.Latitude, venue.Longitude,
		venue.Capacity, venue.Secret, venue.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert venue: %w", err)
	}

	return nil
}

// GetVenue retrieves a single venue by ID.
// Returns ErrNotFound if the venue does not exist.
func (db *DB) GetVenue(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, name, latitude, longitude, capacity, secret, created_at
		FROM venues
		WHERE id = ?`

	var venue models.Venue
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&venue.ID, &venue.Name, &venue.Latitude, &venue.Longitude,
		&venue.Capacity, &venue.Secret, &venue.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}

	return &venue, nil
}

// GetVenueSecret retrieves only the HMAC secret for a venue.
// The ingest gateway calls this on every request (behind the LRU secret
// cache), so the query stays as narrow as possible.
// Returns ErrNotFound if the venue does not exist.
func (db *DB) GetVenueSecret(ctx context.Context, id uuid.UUID) (string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var secret string
	err := db.conn.QueryRowContext(ctx, "SELECT secret FROM venues WHERE id = ?", id).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get venue secret: %w", err)
	}

	return secret, nil
}

// ListVenues returns all registered venues ordered by name.
func (db *DB) ListVenues(ctx context.Context) ([]*models.Venue, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, name, latitude, longitude, capacity, secret, created_at
		FROM venues
		ORDER BY name`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}
	defer rows.Close()

	var venues []*models.Venue
	for rows.Next() {
		venue := &models.Venue{}
		err := rows.Scan(
			&venue.ID, &venue.Name, &venue.Latitude, &venue.Longitude,
			&venue.Capacity, &venue.Secret, &venue.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, venue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating venues: %w", err)
	}

	return venues, nil
}

// UpdateVenue updates the mutable fields of a venue.
// The secret is rotated only when a non-empty secret is provided.
// Returns ErrNotFound if the venue does not exist.
func (db *DB) UpdateVenue(ctx context.Context, venue *models.Venue) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if venue == nil {
		return fmt.Errorf("venue cannot be nil")
	}

	var result sql.Result
	var err error
	if venue.Secret != "" {
		result, err = db.conn.ExecContext(ctx, `
			UPDATE venues
			SET name = ?, latitude = ?, longitude = ?, capacity = ?, secret = ?
			WHERE id = ?`,
			venue.Name, venue.Latitude, venue.Longitude, venue.Capacity, venue.Secret, venue.ID,
		)
	} else {
		result, err = db.conn.ExecContext(ctx, `
			UPDATE venues
			SET name = ?, latitude = ?, longitude = ?, capacity = ?
			WHERE id = ?`,
			venue.Name, venue.Latitude, venue.Longitude, venue.Capacity, venue.ID,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update venue: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteVenue removes a venue from the registry.
// Ledger rows for the venue are kept; they reference the venue only by ID.
// Returns ErrNotFound if the venue does not exist.
func (db *DB) DeleteVenue(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, "DELETE FROM venues WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete venue: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// CountVenues returns the number of registered venues.
func (db *DB) CountVenues(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM venues").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count venues: %w", err)
	}
	return count, nil
}
