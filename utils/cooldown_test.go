package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownCheckAndSet(t *testing.T) {
	c := NewCooldownCache(5 * time.Minute)

	assert.True(t, c.CheckAndSet("g1:u1"), "first claim goes through")
	assert.False(t, c.CheckAndSet("g1:u1"), "second claim is on cooldown")
	assert.True(t, c.CheckAndSet("g1:u2"), "other keys are independent")
}

func TestCooldownExpires(t *testing.T) {
	c := NewCooldownCache(5 * time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	assert.True(t, c.CheckAndSet("g1:u1"))

	c.now = func() time.Time { return base.Add(4 * time.Minute) }
	assert.False(t, c.CheckAndSet("g1:u1"))

	c.now = func() time.Time { return base.Add(5 * time.Minute) }
	assert.True(t, c.CheckAndSet("g1:u1"), "expired entry is reclaimable")
}

func TestCooldownClear(t *testing.T) {
	c := NewCooldownCache(5 * time.Minute)

	assert.True(t, c.CheckAndSet("g1:u1"))
	c.Clear("g1:u1")
	assert.True(t, c.CheckAndSet("g1:u1"), "cleared key is immediately free")
}

func TestCooldownSweep(t *testing.T) {
	c := NewCooldownCache(5 * time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.CheckAndSet("old")
	c.now = func() time.Time { return base.Add(4 * time.Minute) }
	c.CheckAndSet("fresh")
	assert.Equal(t, 2, c.Len())

	c.now = func() time.Time { return base.Add(6 * time.Minute) }
	c.Sweep()
	assert.Equal(t, 1, c.Len(), "only the expired entry is dropped")
	assert.False(t, c.CheckAndSet("fresh"))
}

func TestCooldownConcurrentClaims(t *testing.T) {
	c := NewCooldownCache(time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	claims := 0
	for n := 0; n < 50; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.CheckAndSet("contested") {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, claims, "exactly one goroutine wins the key")
}
