// Package sensor provides the ultrasonic range sensor and a staleness-aware
// cache that the control loop reads without blocking.
package sensor

import (
	"sync"
	"time"
)

// Reading is a captured value and when it was captured.
type Reading[T any] struct {
	Value      T
	CapturedAt time.Time
}

// Cache holds the latest reading of a producer. A reading is fresh while
// now - CapturedAt < maxAge; stale readings are reported absent.
type Cache[T any] struct {
	mu     sync.Mutex
	maxAge time.Duration
	last   Reading[T]
	ok     bool
}

// NewCache creates an empty cache.
func NewCache[T any](maxAge time.Duration) *Cache[T] {
	return &Cache[T]{maxAge: maxAge}
}

// Store records a new value.
func (c *Cache[T]) Store(v T, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = Reading[T]{Value: v, CapturedAt: at}
	c.ok = true
}

// Read returns the value if it is still fresh at now.
func (c *Cache[T]) Read(now time.Time) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if !c.ok || now.Sub(c.last.CapturedAt) >= c.maxAge {
		return zero, false
	}
	return c.last.Value, true
}

// Last returns the most recent reading regardless of age.
func (c *Cache[T]) Last() (Reading[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.ok
}

// MaxAge returns the freshness bound.
func (c *Cache[T]) MaxAge() time.Duration {
	return c.maxAge
}
