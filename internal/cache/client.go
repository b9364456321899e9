package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss indicates the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Client is the pluggable key→bytes backing with TTL support.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryClient is the in-process backing: a single-process mapping with
// lazy expiry plus a size-bounded eviction of the earliest-expiring entry.
type MemoryClient struct {
	mu         sync.RWMutex
	data       map[string]memoryEntry
	maxEntries int
	stop       chan struct{}
	stopOnce   sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryClient creates an in-memory backing. A periodic sweep keeps
// memory bounded; correctness only needs the lazy expiry on Get.
func NewMemoryClient(maxEntries int) *MemoryClient {
	if maxEntries <= 0 {
		maxEntries = 10000
	}

	c := &MemoryClient{
		data:       make(map[string]memoryEntry),
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get retrieves a value; expired entries are treated as absent.
func (c *MemoryClient) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		if cur, still := c.data[key]; still && time.Now().After(cur.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value with expiry now+ttl. Entries are replaced, never
// mutated in place.
func (c *MemoryClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxEntries {
		c.evictEarliest()
	}
	c.data[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a key.
func (c *MemoryClient) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// Close stops the background sweep.
func (c *MemoryClient) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// evictEarliest removes the entry with the earliest expiration. Caller
// holds the write lock.
func (c *MemoryClient) evictEarliest() {
	var victim string
	var earliest time.Time

	for key, entry := range c.data {
		if victim == "" || entry.expiresAt.Before(earliest) {
			victim = key
			earliest = entry.expiresAt
		}
	}
	if victim != "" {
		delete(c.data, victim)
	}
}

func (c *MemoryClient) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.data {
				if now.After(entry.expiresAt) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
