// Package cache provides a TTL cache contract with Redis-backed and
// in-memory implementations. Values round-trip through JSON and a miss is
// reported as (false, nil), never as an error.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Cache is the TTL cache contract consumed by the aggregator.
type Cache interface {
	// Get retrieves a cached value by key and unmarshals it into target.
	// Returns true on a hit, false on a miss.
	Get(ctx context.Context, key string, target any) (bool, error)

	// Set stores a value under key with the given TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// entry is a stored in-memory cache value with its expiry.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// InMemory is an in-memory Cache implementation for testing.
// Thread-safe via RWMutex. Expired entries are dropped lazily on read.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewInMemory creates a new in-memory cache.
func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get retrieves a cached value, honoring expiry.
func (c *InMemory) Get(ctx context.Context, key string, target any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(e.data, target); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value with a TTL.
func (c *InMemory) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = entry{data: data, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete removes a key.
func (c *InMemory) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// SetClock overrides the time source for expiry tests.
func (c *InMemory) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Len returns the number of entries currently stored, expired or not.
func (c *InMemory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
