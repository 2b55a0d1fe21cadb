package capture

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/szuyu2308/Tool-Simulator/core"
	"github.com/szuyu2308/Tool-Simulator/devices"
	"github.com/szuyu2308/Tool-Simulator/utils"
)

const (
	// DefaultTTL is the freshness window for cached frames.
	DefaultTTL = time.Second

	// cacheSize bounds the number of targets with a live cached frame.
	cacheSize = 64
)

// Cache is the shared per-target screen capture store. One instance serves
// every worker; the underlying store synchronizes itself and captures run
// outside any cache-wide lock, so targets do not serialize each other.
type Cache struct {
	providers []Provider
	frames    *expirable.LRU[string, *Frame]

	mu        sync.Mutex
	preferred int // index of the last provider that worked
}

// NewCache builds a cache over the default provider chain. Zero ttl means
// DefaultTTL.
func NewCache(adb *devices.Adb, ttl time.Duration) *Cache {
	return NewCacheWithProviders(defaultProviders(adb), ttl)
}

// NewCacheWithProviders builds a cache over an explicit chain, ordered
// fastest first. Tests inject fakes through this.
func NewCacheWithProviders(providers []Provider, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		providers: providers,
		frames:    expirable.NewLRU[string, *Frame](cacheSize, nil, ttl),
	}
}

// Get returns a frame for the target, reusing the cached one while it is
// fresh unless forceRefresh demands a new capture. When every provider in
// the chain fails the error is a capability error: fatal for the caller,
// never retried here.
func (c *Cache) Get(target devices.Target, forceRefresh bool) (*Frame, error) {
	serial := target.Serial()
	if !forceRefresh {
		if frame, ok := c.frames.Get(serial); ok {
			return frame, nil
		}
	}

	frame, err := c.capture(target)
	if err != nil {
		return nil, err
	}
	c.frames.Add(serial, frame)
	return frame, nil
}

// Invalidate drops the cached frame for one target.
func (c *Cache) Invalidate(serial string) {
	c.frames.Remove(serial)
}

// capture walks the provider chain starting from the provider that last
// succeeded. A provider that works becomes preferred.
func (c *Cache) capture(target devices.Target) (*Frame, error) {
	c.mu.Lock()
	start := c.preferred
	c.mu.Unlock()

	var lastErr error
	for i := range c.providers {
		idx := (start + i) % len(c.providers)
		provider := c.providers[idx]

		img, err := provider.Capture(target)
		if err != nil {
			utils.Verbose("capture: provider %s failed for %s: %v", provider.Name(), target.Serial(), err)
			lastErr = err
			continue
		}

		if idx != start {
			utils.Info("capture: switching to provider %s for %s", provider.Name(), target.Serial())
			c.mu.Lock()
			c.preferred = idx
			c.mu.Unlock()
		}

		return &Frame{Image: img, CapturedAt: time.Now(), Provider: provider.Name()}, nil
	}

	return nil, core.ErrCaptureExhausted.WithMessagef("no capture provider succeeded for %s", target.Serial()).WithCause(lastErr)
}
