// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package services

import (
	"context"
	"fmt"
	"time"
)

// BusComponentsRunner interface matches the BusComponents lifecycle.
//
// This interface allows the BusService to work with BusComponents
// without importing the main package, avoiding circular dependencies.
//
// Satisfied by *BusComponents from cmd/server/bus_init.go:
//   - Start(ctx context.Context) error - starts appender, router, poison recorder
//   - Shutdown(ctx context.Context) - stops router and all components
//   - IsRunning() bool - returns running state
type BusComponentsRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// BusService wraps the event bus components as a supervised service.
//
// It adapts the Start/Shutdown lifecycle pattern to suture's Serve pattern:
//  1. Calls Start(ctx) to begin all bus components
//  2. Waits for context cancellation
//  3. Calls Shutdown(ctx) for graceful cleanup
//
// The service manages multiple bus subsystems including:
//   - Embedded NATS server (if configured)
//   - JetStream connection and publisher
//   - Watermill Router (runs the scoring worker handler)
//   - Ledger appender (batch writes to DuckDB)
//   - Poison recorder (drains the dead-letter subject)
//
// Example usage:
//
//	busComponents, _ := InitBus(cfg, db, worker)
//	svc := services.NewBusService(busComponents)
//	tree.AddDataService(svc)
type BusService struct {
	components      BusComponentsRunner
	shutdownTimeout time.Duration
	name            string
}

// NewBusService creates a new bus service wrapper with a 10 second
// shutdown timeout, matching the supervisor tree's default.
func NewBusService(components BusComponentsRunner) *BusService {
	return &BusService{
		components:      components,
		shutdownTimeout: 10 * time.Second,
		name:            "bus-components",
	}
}

// NewBusServiceWithTimeout creates a bus service with a custom shutdown timeout.
func NewBusServiceWithTimeout(components BusComponentsRunner, shutdownTimeout time.Duration) *BusService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &BusService{
		components:      components,
		shutdownTimeout: shutdownTimeout,
		name:            "bus-components",
	}
}

// Serve implements suture.Service.
//
// This method:
//  1. Starts all bus components (appender, Router, poison recorder)
//  2. Blocks until the context is canceled
//  3. Shuts down all components with the configured timeout
//
// If Start() fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (s *BusService) Serve(ctx context.Context) error {
	if err := s.components.Start(ctx); err != nil {
		return fmt.Errorf("bus components start failed: %w", err)
	}

	// Wait for shutdown signal
	<-ctx.Done()

	// Shutdown with timeout - use fresh context since original is canceled
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.components.Shutdown(shutdownCtx)

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *BusService) String() string {
	return s.name
}
