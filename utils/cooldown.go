package utils

import (
	"sync"
	"time"
)

// CooldownCache is an injected key to timestamp cache with its own sweep.
// It owns no policy: callers decide what a key means, so it can later be
// backed by a shared store without touching business rules.
type CooldownCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewCooldownCache creates a cache whose entries expire after ttl.
func NewCooldownCache(ttl time.Duration) *CooldownCache {
	return &CooldownCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// CheckAndSet reports whether key is free of an unexpired entry and claims
// it if so. Returns false while the key is on cooldown.
func (c *CooldownCache) CheckAndSet(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.entries[key]; ok {
		if c.now().Sub(last) < c.ttl {
			return false
		}
	}
	c.entries[key] = c.now()
	return true
}

// Clear drops a key before its cooldown elapses.
func (c *CooldownCache) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Sweep removes expired entries.
func (c *CooldownCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, t := range c.entries {
		if c.now().Sub(t) >= c.ttl {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of live entries, expired or not yet swept included.
func (c *CooldownCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SweepEvery sweeps on a fixed interval until done closes.
func (c *CooldownCache) SweepEvery(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-done:
			return
		}
	}
}
