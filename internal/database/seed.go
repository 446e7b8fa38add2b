// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/models"
)

// SeedDemoVenues seeds the database with the demo venue set used for
// local development and the simulated sensor agent. It is idempotent:
// if any venues already exist the seed is skipped entirely, so user
// edits survive restarts.
//
// The fixed UUIDs let the agent and demo dashboards reference venues
// without a discovery step.
func (db *DB) SeedDemoVenues(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	count, err := db.CountVenues(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing venues: %w", err)
	}
	if count > 0 {
		logging.Debug().
			Int64("existing_venues", count).
			Msg("Venues already present, skipping demo seed")
		return nil
	}

	logging.Info().Msg("Seeding demo venues...")

	// Richmond Row, London Ontario. Coordinates are real, secrets are not.
	venues := []models.Venue{
		{
			ID:       uuid.MustParse("00000000-0000-0000-0000-000000000001"),
			Name:     "Joe Kool's",
			Latitude: 42.9849, Longitude: -81.2453,
			Capacity: 150,
			Secret:   "secret_joe",
		},
		{
			ID:       uuid.MustParse("00000000-0000-0000-0000-000000000002"),
			Name:     "Barney's",
			Latitude: 42.9855, Longitude: -81.2460,
			Capacity: 200,
			Secret:   "secret_barney",
		},
		{
			ID:       uuid.MustParse("00000000-0000-0000-0000-000000000003"),
			Name:     "Molly Bloom's",
			Latitude: 42.9830, Longitude: -81.2500,
			Capacity: 120,
			Secret:   "secret_molly",
		},
		{
			ID:       uuid.MustParse("00000000-0000-0000-0000-000000000004"),
			Name:     "The Ceeps",
			Latitude: 42.9860, Longitude: -81.2480,
			Capacity: 300,
			Secret:   "secret_ceeps",
		},
		{
			ID:       uuid.MustParse("00000000-0000-0000-0000-000000000005"),
			Name:     "Toboggan Brewing Co.",
			Latitude: 42.9840, Longitude: -81.2470,
			Capacity: 180,
			Secret:   "secret_toboggan",
		},
	}

	for i := range venues {
		if err := db.CreateVenue(ctx, &venues[i]); err != nil {
			return fmt.Errorf("failed to seed venue %q: %w", venues[i].Name, err)
		}
	}

	logging.Info().
		Int("venues", len(venues)).
		Msg("Demo venues seeded")

	return nil
}

// EnsureAdminUser creates the bootstrap admin account if no account with
// the given email exists. The password hash is produced by the caller
// (hashing policy lives in the auth package, not here).
//
// Returns the existing or newly created user. A concurrent create by
// another instance is treated as success.
func (db *DB) EnsureAdminUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if email == "" || passwordHash == "" {
		return nil, fmt.Errorf("admin email and password hash required")
	}

	existing, err := db.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check for admin user: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}
	if err := db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return db.GetUserByEmail(ctx, email)
		}
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	logging.Warn().
		Str("email", email).
		Msg("Bootstrap admin account created with default credentials, change the password immediately")

	return user, nil
}
