package memory

import (
	"context"
	"sync"
	"time"
)

// Cache is a process-local cache with per-key expiry. It backs the
// settings cache when the in-memory driver runs without Redis.
type Cache struct {
	mu    sync.Mutex
	items map[string]cacheItem
}

type cacheItem struct {
	value     string
	expiresAt time.Time
}

// NewCache creates a new Cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]cacheItem)}
}

// Get returns the cached value, or "" when the key is missing or expired.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		delete(c.items, key)
		return "", nil
	}
	return item.value, nil
}

// Set stores a value with a TTL.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// IdempotencyStore is a process-local idempotency store.
type IdempotencyStore struct {
	mu    sync.Mutex
	items map[string]idempotencyItem
}

type idempotencyItem struct {
	response  []byte
	expiresAt time.Time
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]idempotencyItem)}
}

// CheckAndSet reserves the key on first sight and reports an existing
// response on subsequent calls within the TTL.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if ok && time.Now().Before(item.expiresAt) {
		return true, item.response, nil
	}

	stored := response
	if stored == nil {
		stored = []byte("processing")
	}
	s.items[key] = idempotencyItem{response: stored, expiresAt: time.Now().Add(ttl)}
	return false, nil, nil
}

// Update replaces the stored response for a key.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = idempotencyItem{response: response, expiresAt: time.Now().Add(ttl)}
	return nil
}
