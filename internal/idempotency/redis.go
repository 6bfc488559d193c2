// Package idempotency remembers which processor events have already been handled.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "webhook:event:"
	DefaultTTL = 72 * time.Hour
)

type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisStore{client: client, ttl: ttl}
}

// Claim reports whether the caller is the first to see eventID within the TTL.
func (s *RedisStore) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, eventKey(eventID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim event %s: %w", eventID, err)
	}

	return ok, nil
}

// Release forgets eventID so a redelivery is processed again.
func (s *RedisStore) Release(ctx context.Context, eventID string) error {
	err := s.client.Del(ctx, eventKey(eventID)).Err()
	if err != nil {
		return fmt.Errorf("failed to release event %s: %w", eventID, err)
	}

	return nil
}

func eventKey(eventID string) string {
	return keyPrefix + eventID
}
