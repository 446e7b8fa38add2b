// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

// Package main is the VenuePulse traffic agent, a load generator that
// replays a compressed Friday night against a running server.
//
// One goroutine per venue posts HMAC-signed occupancy deltas to the
// ingest endpoint, paced by a token-bucket limiter. The arrival curve
// follows a bar-district evening: quiet at 19:00, ramping from 20:00,
// peaking 22:00-23:00, decaying after last call. Time is compressed so
// the whole evening plays out in minutes (42x turns 7 virtual hours
// into 10 real minutes).
//
// Usage:
//
//	venuepulse-agent [flags]
//
//	-server   Base URL of the VenuePulse server (default http://localhost:8000)
//	-duration How long to run; 0 means one full virtual evening (default 0)
//	-compress Virtual seconds per real second (default 42)
//	-venues   JSON file with the venue set; empty uses the built-in demo
//	          seed matching SEED_DEMO_VENUES=true
//	-tick     Real time between events per venue (default 2s)
//
// The agent signs each request body with the venue's secret and sends
// the hex digest in X-Signature, exactly like a door sensor. On SIGINT
// it stops cleanly and prints per-venue summary statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/venuepulse/internal/logging"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8000", "base URL of the VenuePulse server")
		duration  = flag.Duration("duration", 0, "how long to run; 0 runs one full virtual evening")
		compress  = flag.Float64("compress", 42, "virtual seconds per real second")
		venuesArg = flag.String("venues", "", "JSON file with the venue set (empty uses the built-in demo seed)")
		tick      = flag.Duration("tick", 2*time.Second, "real time between events per venue")
		logLevel  = flag.String("log-level", "info", "log level: trace, debug, info, warn, error")
	)
	flag.Parse()

	logging.Init(logging.Config{Level: *logLevel, Format: "console"})

	venues, err := loadVenues(*venuesArg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load venue set")
	}

	if *compress <= 0 {
		logging.Fatal().Float64("compress", *compress).Msg("Compression factor must be positive")
	}

	// One full evening is 7 virtual hours
	runFor := *duration
	if runFor == 0 {
		evening := time.Duration(float64(virtualHourEnd-virtualHourStart) * float64(time.Hour) / *compress)
		runFor = evening
	}

	logging.Info().
		Str("server", *serverURL).
		Int("venues", len(venues)).
		Float64("compress", *compress).
		Dur("duration", runFor).
		Msg("Starting traffic agent")

	ctx, cancel := context.WithTimeout(context.Background(), runFor)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Stopping traffic agent")
		cancel()
	}()

	client := newIngestClient(*serverURL)
	start := time.Now()

	var wg sync.WaitGroup
	stats := make([]*venueStats, len(venues))
	for i, venue := range venues {
		stats[i] = &venueStats{name: venue.Name}
		wg.Add(1)
		go func(venue AgentVenue, st *venueStats, seed int64) {
			defer wg.Done()
			runVenue(ctx, client, venue, st, start, *compress, *tick, seed)
		}(venue, stats[i], start.UnixNano()+int64(i))
	}
	wg.Wait()

	printSummary(stats, time.Since(start))
}

// venueStats accumulates per-venue counters for the exit summary.
type venueStats struct {
	mu        sync.Mutex
	name      string
	sent      int
	accepted  int
	rejected  int
	failed    int
	peakOcc   int
	lastDelta int
}

func (s *venueStats) record(delta, occupancy int, outcome sendOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	s.lastDelta = delta
	if occupancy > s.peakOcc {
		s.peakOcc = occupancy
	}
	switch outcome {
	case sendAccepted:
		s.accepted++
	case sendRejected:
		s.rejected++
	case sendFailed:
		s.failed++
	}
}

// runVenue drives one venue's sensor until the context ends.
func runVenue(ctx context.Context, client *ingestClient, venue AgentVenue, st *venueStats, start time.Time, compress float64, tick time.Duration, seed int64) {
	model := newTrafficModel(venue, seed)
	limiter := rate.NewLimiter(rate.Every(tick), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		hour := virtualHour(time.Since(start), compress)
		delta := model.nextDelta(hour)
		if delta == 0 {
			// The gateway rejects zero deltas; an empty tick is just
			// a quiet moment at the door
			continue
		}

		outcome := client.sendEvent(ctx, venue, delta)
		st.record(delta, model.Occupancy(), outcome)

		logging.Debug().
			Str("venue", venue.Name).
			Int("virtual_hour", hour%24).
			Int("delta", delta).
			Int("occupancy", model.Occupancy()).
			Msg("Event sent")
	}
}

// printSummary writes per-venue statistics to stdout at exit.
func printSummary(stats []*venueStats, elapsed time.Duration) {
	fmt.Printf("\nTraffic agent summary (%s elapsed)\n", elapsed.Round(time.Second))
	fmt.Printf("%-24s %8s %9s %9s %7s %9s\n", "VENUE", "SENT", "ACCEPTED", "REJECTED", "FAILED", "PEAK OCC")
	var sent, accepted, rejected, failed int
	for _, st := range stats {
		st.mu.Lock()
		fmt.Printf("%-24s %8d %9d %9d %7d %9d\n", st.name, st.sent, st.accepted, st.rejected, st.failed, st.peakOcc)
		sent += st.sent
		accepted += st.accepted
		rejected += st.rejected
		failed += st.failed
		st.mu.Unlock()
	}
	fmt.Printf("%-24s %8d %9d %9d %7d\n", "TOTAL", sent, accepted, rejected, failed)
}
