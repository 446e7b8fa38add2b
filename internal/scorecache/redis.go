// VenuePulse - Real-Time Venue Occupancy Ingestion and Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/venuepulse

package scorecache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/venuepulse/internal/config"
	"github.com/tomtom215/venuepulse/internal/models"
)

const (
	// scoreKeyPrefix + venue UUID + scoreKeySuffix form the per-venue key.
	scoreKeyPrefix = "venue:"
	scoreKeySuffix = ":score"

	// scoreKeyPattern matches every snapshot key for SCAN.
	scoreKeyPattern = "venue:*:score"

	// scanBatchSize is the SCAN COUNT hint per round trip.
	scanBatchSize = 200

	// connectTimeout bounds the startup ping.
	connectTimeout = 5 * time.Second
)

// RedisStore keeps one JSON snapshot per venue in Redis. Snapshots carry a
// TTL so venues that were deleted while the server was down eventually
// expire instead of lingering forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	// writeMu serializes Put and Clear, including their round trips.
	// Without it a Clear could delete the keys and then lose to a SET
	// already on the wire carrying pre-clear state. The floor is the
	// time of the last Clear; Put drops older snapshots. Reads are not
	// serialized.
	writeMu sync.Mutex
	floor   time.Time
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg *config.ScoreCacheConfig) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("score cache config required")
	}

	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		closeQuietly(client)
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client: client,
		ttl:    cfg.TTL,
	}, nil
}

func scoreKey(venueID uuid.UUID) string {
	return scoreKeyPrefix + venueID.String() + scoreKeySuffix
}

// Put stores the snapshot as JSON under the venue's key. Snapshots older
// than the last Clear are dropped, not stored.
func (s *RedisStore) Put(ctx context.Context, score *models.VenueScore) error {
	if score == nil {
		return fmt.Errorf("score cannot be nil")
	}
	if score.VenueID == uuid.Nil {
		return fmt.Errorf("score venue ID required")
	}

	data, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("failed to marshal score: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !score.UpdatedAt.IsZero() && score.UpdatedAt.Before(s.floor) {
		return nil
	}
	if err := s.client.Set(ctx, scoreKey(score.VenueID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store score: %w", err)
	}
	return nil
}

// Get returns one venue's snapshot, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, venueID uuid.UUID) (*models.VenueScore, error) {
	data, err := s.client.Get(ctx, scoreKey(venueID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}

	var score models.VenueScore
	if err := json.Unmarshal(data, &score); err != nil {
		return nil, fmt.Errorf("failed to unmarshal score: %w", err)
	}
	return &score, nil
}

// List scans every snapshot key and fetches the values in one MGET,
// sorted by venue name like the memory backend.
func (s *RedisStore) List(ctx context.Context) ([]*models.VenueScore, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scores: %w", err)
	}

	scores := make([]*models.VenueScore, 0, len(values))
	for _, value := range values {
		// Keys can expire between SCAN and MGET.
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var score models.VenueScore
		if err := json.Unmarshal([]byte(raw), &score); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score: %w", err)
		}
		scores = append(scores, &score)
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Name != scores[j].Name {
			return scores[i].Name < scores[j].Name
		}
		return scores[i].VenueID.String() < scores[j].VenueID.String()
	})
	return scores, nil
}

// Delete removes one venue's snapshot.
func (s *RedisStore) Delete(ctx context.Context, venueID uuid.UUID) error {
	if err := s.client.Del(ctx, scoreKey(venueID)).Err(); err != nil {
		return fmt.Errorf("failed to delete score: %w", err)
	}
	return nil
}

// Clear removes every snapshot key and floors out writes of older state.
func (s *RedisStore) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.floor = time.Now().UTC()

	keys, err := s.scanKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear scores: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// scanKeys walks the keyspace with cursor-based SCAN so large deployments
// never block Redis the way KEYS would.
func (s *RedisStore) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, scoreKeyPattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan score keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func closeQuietly(client *redis.Client) {
	_ = client.Close()
}
