// Package redis provides the durable CartStore backed by a Redis key.
package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/caphehouse/api/internal/repositories"
)

// CartStore persists serialized cart snapshots in Redis. Values are stored
// without expiry; the cart survives restarts until cleared or overwritten.
type CartStore struct {
	client *redis.Client
}

// NewCartStore wraps the provided Redis client.
func NewCartStore(client *redis.Client) (*CartStore, error) {
	if client == nil {
		return nil, errors.New("redis cart store: client is required")
	}
	return &CartStore{client: client}, nil
}

// Get returns the value stored under key, translating redis.Nil to a
// not-found StoreError.
func (s *CartStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repositories.NewNotFoundError("redis cart store: key not found")
		}
		return "", repositories.NewUnavailableError("redis cart store: get failed", err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *CartStore) Set(ctx context.Context, key string, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return repositories.NewUnavailableError("redis cart store: set failed", err)
	}
	return nil
}

// Ping verifies connectivity for health checks.
func (s *CartStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return repositories.NewUnavailableError("redis cart store: ping failed", err)
	}
	return nil
}
