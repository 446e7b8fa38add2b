// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/tomtom215/venuepulse/internal/config"
	"github.com/tomtom215/venuepulse/internal/database"
	"github.com/tomtom215/venuepulse/internal/eventbus"
	"github.com/tomtom215/venuepulse/internal/logging"
	"github.com/tomtom215/venuepulse/internal/scoring"
)

// BusComponents holds all event bus components for lifecycle management.
//
// The bus is the durable backbone between the ingest gateway and the
// scoring worker: the gateway publishes accepted events, JetStream
// persists them, and the Watermill router delivers them to the worker
// with retry and poison-queue middleware. The poison recorder drains the
// dead-letter subject into DuckDB on its own subscriber loop.
type BusComponents struct {
	server            *eventbus.EmbeddedServer
	natsConn          *natsgo.Conn
	streamInitializer *eventbus.StreamInitializer
	publisher         *eventbus.Publisher
	router            *eventbus.Router

	// Subscribers: one feeds the scoring worker through the router,
	// one feeds the poison recorder directly.
	scoringSubscriber *eventbus.Subscriber
	poisonSubscriber  *eventbus.Subscriber

	// Poison recorder and its standalone consume loop
	poisonRecorder *eventbus.PoisonRecorder
	poisonHandler  *eventbus.MessageHandler

	// Ledger appender, started and stopped with the bus so batch writes
	// are ready before message consumption begins
	appender *scoring.Appender

	// Health checking
	healthChecker *eventbus.HealthChecker

	shutdownComplete chan struct{}
	poisonDone       chan struct{}
	poisonStarted    bool
	mu               sync.Mutex
	running          bool
}

// InitBus initializes the embedded NATS server, JetStream stream,
// publisher, router, and poison recorder, and registers the scoring
// worker as the stream's consumer.
//
// Parameters:
//   - cfg: Application configuration with bus settings
//   - db: Database for the dead-letter archive
//   - worker: Scoring worker whose Handle consumes occupancy events
//   - appender: Ledger appender started/stopped with the bus lifecycle
//
//nolint:gocyclo // Sequential multi-component initialization
func InitBus(cfg *config.Config, db *database.DB, worker *scoring.Worker, appender *scoring.Appender) (*BusComponents, error) {
	logging.Info().Msg("Initializing event bus...")

	components := &BusComponents{
		appender:         appender,
		shutdownComplete: make(chan struct{}),
		poisonDone:       make(chan struct{}),
	}

	var natsURL string

	// Step 1: Initialize embedded NATS server if enabled
	if cfg.Bus.EmbeddedServer {
		serverCfg := eventbus.ServerConfig{
			Host:              "127.0.0.1",
			Port:              4222,
			StoreDir:          cfg.Bus.StoreDir,
			JetStreamMaxMem:   cfg.Bus.MaxMemory,
			JetStreamMaxStore: cfg.Bus.MaxStore,
		}

		server, err := eventbus.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, err
		}
		components.server = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	} else {
		natsURL = cfg.Bus.URL
		logging.Info().Str("url", natsURL).Msg("Using external NATS server")
	}

	// Step 2: Connect to NATS
	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	components.natsConn = nc
	logging.Info().Msg("NATS connection established")

	// Step 3: Initialize JetStream and ensure the occupancy stream exists
	js, err := jetstream.New(nc)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := eventbus.DefaultStreamConfig()
	streamCfg.MaxAge = time.Duration(cfg.Bus.StreamRetentionDays) * 24 * time.Hour
	if cfg.Bus.DuplicateWindow > 0 {
		streamCfg.DuplicateWindow = cfg.Bus.DuplicateWindow
	}

	streamInitializer, err := eventbus.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create stream initializer: %w", err)
	}
	components.streamInitializer = streamInitializer

	ctx := context.Background()
	stream, err := streamInitializer.EnsureStream(ctx)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("ensure stream exists: %w", err)
	}
	streamInfo := stream.CachedInfo()
	logging.Info().
		Str("name", streamInfo.Config.Name).
		Strs("subjects", streamInfo.Config.Subjects).
		Dur("max_age", streamInfo.Config.MaxAge).
		Msg("JetStream stream ready")

	// Step 4: Create Publisher with circuit breaker on the publish path
	publisherCfg := eventbus.DefaultPublisherConfig(natsURL)
	publisher, err := eventbus.NewPublisher(publisherCfg, nil)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, err
	}
	publisher.SetCircuitBreaker(eventbus.NewCircuitBreaker(eventbus.DefaultCircuitBreakerConfig()))
	components.publisher = publisher
	logging.Info().Msg("Bus publisher created (circuit breaker enabled)")

	// Step 5: Create Router with middleware from config
	routerCfg := eventbus.RouterConfig{
		RetryMaxRetries:      cfg.Bus.RouterRetryCount,
		RetryInitialInterval: cfg.Bus.RouterRetryInitialInterval,
		RetryMaxInterval:     cfg.Bus.RouterRetryInitialInterval * 10, // 10x initial
		RetryMultiplier:      2.0,
		ThrottlePerSecond:    int64(cfg.Bus.RouterThrottlePerSecond),
		PoisonQueueTopic:     cfg.Bus.RouterPoisonQueueTopic,
		CloseTimeout:         cfg.Bus.RouterCloseTimeout,
	}

	router, err := eventbus.NewRouter(&routerCfg, publisher.WatermillPublisher(), nil)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create router: %w", err)
	}
	components.router = router
	logging.Info().
		Int("retry", routerCfg.RetryMaxRetries).
		Str("poison_topic", routerCfg.PoisonQueueTopic).
		Msg("Watermill Router created")

	// Step 6: Create the scoring subscriber and register the worker
	scoringSubCfg := eventbus.SubscriberConfig{
		URL:              natsURL,
		DurableName:      cfg.Bus.DurableName,
		QueueGroup:       cfg.Bus.QueueGroup,
		SubscribersCount: cfg.Bus.SubscribersCount,
		AckWaitTimeout:   cfg.Bus.AckWait,
		MaxDeliver:       cfg.Bus.MaxDeliver,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		// Bind to the existing stream to avoid AutoProvision trying to
		// create a stream from the wildcard topic name (occupancy.event.>)
		StreamName: streamCfg.Name,
	}
	scoringSubscriber, err := eventbus.NewSubscriber(&scoringSubCfg, nil)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create scoring subscriber: %w", err)
	}
	components.scoringSubscriber = scoringSubscriber

	router.AddConsumerHandler(
		"scoring-worker",
		eventbus.EventSubjectWildcard,
		scoringSubscriber,
		worker.Handle,
	)
	logging.Info().
		Str("durable", scoringSubCfg.DurableName).
		Int("subscribers", scoringSubCfg.SubscribersCount).
		Msg("Scoring worker registered with Router")

	// Step 7: Create the poison recorder on its own subscriber loop.
	// It must not sit behind the router's poison middleware: a failed
	// save would re-poison the message to its own input topic.
	poisonSubCfg := eventbus.SubscriberConfig{
		URL:              natsURL,
		DurableName:      cfg.Bus.DurableName + "-poison",
		QueueGroup:       cfg.Bus.QueueGroup + "-poison",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    100,
		CloseTimeout:     10 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		StreamName:       streamCfg.Name,
	}
	poisonSubscriber, err := eventbus.NewSubscriber(&poisonSubCfg, nil)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create poison subscriber: %w", err)
	}
	components.poisonSubscriber = poisonSubscriber

	poisonRecorder, err := eventbus.NewPoisonRecorder(db, nil)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create poison recorder: %w", err)
	}
	components.poisonRecorder = poisonRecorder
	components.poisonHandler = poisonSubscriber.
		NewMessageHandler(eventbus.PoisonSubject).
		Handle(poisonRecorder.Handle)
	logging.Info().Str("subject", eventbus.PoisonSubject).Msg("Poison recorder created")

	// Step 8: Create and register the health checker
	healthChecker := eventbus.NewHealthChecker(eventbus.DefaultHealthConfig())
	healthChecker.RegisterComponent("publisher", publisher)
	healthChecker.RegisterComponent("router", router)
	healthChecker.RegisterComponent("stream", streamInitializer)
	healthChecker.RegisterComponent("poison-recorder", poisonRecorder)
	components.healthChecker = healthChecker
	logging.Info().Msg("Health checker initialized with bus components")

	logging.Info().Msg("Event bus initialized successfully")
	return components, nil
}

// Start begins the ledger appender, the Router, and the poison recorder.
//
// The appender is started first so batch writes are ready before message
// consumption begins. The poison recorder runs on its own goroutine for
// the reason documented on Step 7 of InitBus.
func (c *BusComponents) Start(ctx context.Context) error {
	if c == nil {
		return nil
	}

	if c.appender != nil {
		logging.Info().Msg("Starting ledger appender...")
		if err := c.appender.Start(ctx); err != nil {
			return fmt.Errorf("start ledger appender: %w", err)
		}
	}

	if c.router != nil {
		logging.Info().Msg("Starting Watermill Router...")
		running := c.router.RunAsync(ctx)
		select {
		case <-running:
			logging.Info().Msg("Watermill Router started successfully")
		case <-ctx.Done():
			return fmt.Errorf("context canceled while starting router: %w", ctx.Err())
		}
	}

	if c.poisonHandler != nil {
		c.mu.Lock()
		c.poisonStarted = true
		c.mu.Unlock()
		go func() {
			defer close(c.poisonDone)
			if err := c.poisonHandler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Poison recorder loop stopped")
			}
		}()
		logging.Info().Msg("Poison recorder started")
	} else if c.poisonDone != nil {
		close(c.poisonDone)
	}

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	logging.Info().Msg("All bus components started")
	return nil
}

// Shutdown gracefully stops all bus components.
//
// Shutdown order is critical for clean termination:
//  1. Stop Router first (stops the scoring worker handler)
//  2. Close ledger appender (flushes remaining buffer)
//  3. Close subscribers (ends the poison recorder loop)
//  4. Close publisher
//  5. Close NATS connection
//  6. Shutdown embedded server last
func (c *BusComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	alreadyStopped := !c.running && c.natsConn == nil && c.server == nil
	c.running = false
	c.mu.Unlock()
	if alreadyStopped {
		return
	}

	logging.Info().Msg("Shutting down bus components...")

	c.shutdownRouter()
	c.shutdownAppender()
	c.shutdownSubscribers()
	c.shutdownPublisher()
	c.shutdownConnection(ctx)

	select {
	case <-c.shutdownComplete:
	default:
		close(c.shutdownComplete)
	}
	logging.Info().Msg("Bus shutdown complete")
}

// shutdownRouter stops the Watermill Router.
func (c *BusComponents) shutdownRouter() {
	if c.router == nil {
		return
	}
	if err := c.router.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing Router")
	}
	logging.Info().Msg("Watermill Router stopped")
}

// shutdownAppender closes the ledger appender and flushes the buffer.
func (c *BusComponents) shutdownAppender() {
	if c.appender == nil {
		return
	}
	if err := c.appender.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing ledger appender")
	}
	logging.Info().Msg("Ledger appender closed")
}

// shutdownSubscribers closes all JetStream subscribers.
func (c *BusComponents) shutdownSubscribers() {
	if c.scoringSubscriber != nil {
		if err := c.scoringSubscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing scoring subscriber")
		}
		logging.Info().Msg("Scoring subscriber closed")
	}
	if c.poisonSubscriber != nil {
		if err := c.poisonSubscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing poison subscriber")
		}
		// Closing the subscriber ends the recorder's message channel
		c.mu.Lock()
		started := c.poisonStarted
		c.mu.Unlock()
		if started {
			select {
			case <-c.poisonDone:
			case <-time.After(5 * time.Second):
				logging.Warn().Msg("Poison recorder did not stop in time")
			}
		}
		logging.Info().Msg("Poison subscriber closed")
	}
}

// shutdownPublisher closes the bus publisher.
func (c *BusComponents) shutdownPublisher() {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing publisher")
	}
	logging.Info().Msg("Publisher closed")
}

// shutdownConnection closes the NATS connection and embedded server.
func (c *BusComponents) shutdownConnection(ctx context.Context) {
	if c.natsConn != nil {
		c.natsConn.Close()
		c.natsConn = nil
		logging.Info().Msg("NATS connection closed")
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down NATS server")
		}
		c.server = nil
		logging.Info().Msg("Embedded NATS server stopped")
	}
}

// IsRunning returns whether the bus components are active.
func (c *BusComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// HealthChecker exposes the bus health checker for API wiring.
func (c *BusComponents) HealthChecker() *eventbus.HealthChecker {
	if c == nil {
		return nil
	}
	return c.healthChecker
}

// Publisher exposes the bus publisher for the ingest gateway.
func (c *BusComponents) Publisher() *eventbus.Publisher {
	if c == nil {
		return nil
	}
	return c.publisher
}

// StreamInitializer exposes the stream surface for the reset controller.
func (c *BusComponents) StreamInitializer() *eventbus.StreamInitializer {
	if c == nil {
		return nil
	}
	return c.streamInitializer
}
