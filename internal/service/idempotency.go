package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore remembers which webhook envelopes were already taken in.
type IdempotencyStore interface {
	// Claim returns false when key was claimed before and has not expired.
	Claim(ctx context.Context, key string) (bool, error)
	// Release forgets key so a redelivery is processed again.
	Release(ctx context.Context, key string) error
}

type redisIdempotency struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisIdempotency(client *redis.Client, prefix string, ttl time.Duration) IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisIdempotency{client: client, prefix: prefix, ttl: ttl}
}

func (s *redisIdempotency) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming %s: %w", key, err)
	}
	return ok, nil
}

func (s *redisIdempotency) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("releasing %s: %w", key, err)
	}
	return nil
}
