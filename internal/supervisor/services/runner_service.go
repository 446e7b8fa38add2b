// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package services

import (
	"context"
)

// Runner is the lifecycle contract for components that block in Run
// until their context is canceled.
//
// Satisfied by:
//   - *scoring.StateStore (per-venue lane dispatcher)
//   - *scoring.Refresher (periodic decay re-publisher)
//   - *eventbus.MessageHandler (poison-queue recorder loop)
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerService adapts a blocking Run(ctx) component to suture.Service.
//
// Unlike the Start/Stop wrappers, Run-pattern components already match
// suture's Serve semantics, so this wrapper only contributes a stable
// service name for supervisor logs.
type RunnerService struct {
	runner Runner
	name   string
}

// NewRunnerService creates a supervised wrapper around a Run-pattern component.
//
// Example usage:
//
//	states := scoring.NewStateStore(lanes)
//	tree.AddMessagingService(services.NewRunnerService(states, "scoring-lanes"))
func NewRunnerService(runner Runner, name string) *RunnerService {
	return &RunnerService{
		runner: runner,
		name:   name,
	}
}

// Serve implements suture.Service by delegating to the component's Run.
//
// Run is expected to block until ctx is canceled and return ctx.Err()
// (or nil) on clean shutdown. Any other error triggers a supervised
// restart with backoff.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *RunnerService) String() string {
	return s.name
}
