package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

type item struct {
	value      []byte
	expiration time.Time
}

// Memory is a thread-safe in-memory byte cache with TTL. The HTTP layer
// uses it to serve repeated catalog reads without re-reading the snapshot
// document; catalog writes invalidate it.
type Memory struct {
	data  map[string]item
	mutex sync.RWMutex
}

// NewMemory creates the cache and starts a background sweep of expired
// entries.
func NewMemory() *Memory {
	c := &Memory{data: make(map[string]item)}
	go c.cleanupExpired()
	return c
}

// Get returns the cached bytes for key, or ErrMiss.
func (c *Memory) Get(key string) ([]byte, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	it, exists := c.data[key]
	if !exists || time.Now().After(it.expiration) {
		return nil, ErrMiss
	}
	return it.value, nil
}

// Set stores value under key for ttl.
func (c *Memory) Set(key string, value []byte, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data[key] = item{value: value, expiration: time.Now().Add(ttl)}
}

// Delete removes one key.
func (c *Memory) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.data, key)
}

// Clear removes every entry. Called after any catalog mutation.
func (c *Memory) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]item)
}

// Size returns the current entry count.
func (c *Memory) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

func (c *Memory) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, it := range c.data {
			if now.After(it.expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}
