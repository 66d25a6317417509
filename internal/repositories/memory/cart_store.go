// Package memory provides an in-process CartStore for tests and offline use.
package memory

import (
	"context"
	"sync"

	"github.com/caphehouse/api/internal/repositories"
)

// CartStore keeps serialized cart snapshots in a process-local map.
type CartStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewCartStore constructs an empty in-memory store.
func NewCartStore() *CartStore {
	return &CartStore{values: make(map[string]string)}
}

// Get returns the value stored under key, or a not-found StoreError.
func (s *CartStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	value, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return "", repositories.NewNotFoundError("memory cart store: key not found")
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *CartStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}
