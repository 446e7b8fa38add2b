// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

// Package testinfra provides Docker-based test infrastructure for integration tests.
//
// This package uses testcontainers-go to manage containers for integration tests,
// currently a disposable Redis for exercising the redis score cache backend.
// All helpers live behind the integration build tag; unit tests never touch
// Docker.
//
// Tests that need a container should call SkipIfNoDocker first so suites
// degrade gracefully on machines without a Docker daemon:
//
//	func TestRedisStore_RoundTrip(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//
//	    redis, err := testinfra.NewRedisContainer(ctx)
//	    ...
//	    defer testinfra.CleanupContainer(t, ctx, redis)
//	}
package testinfra
