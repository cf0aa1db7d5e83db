package logic

import "time"

// RateLimiter enforces a minimum real-time spacing between events of one class.
// Not safe for concurrent use; each limiter belongs to the control loop.
type RateLimiter struct {
	interval time.Duration
	last     time.Time
	fired    bool
}

// NewRateLimiter creates a limiter with the given minimum interval.
// The first call to Allow always succeeds.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Allow reports whether an event may fire at now, recording it if so.
func (r *RateLimiter) Allow(now time.Time) bool {
	return r.AllowEvery(now, r.interval)
}

// AllowEvery is Allow with an interval chosen by the caller for this event,
// used when spacing depends on the measurement (e.g. closer obstacles pulse faster).
func (r *RateLimiter) AllowEvery(now time.Time, interval time.Duration) bool {
	if r.fired && now.Sub(r.last) < interval {
		return false
	}
	r.last = now
	r.fired = true
	return true
}

// Eligible reports whether an event may fire at now under interval without
// recording it. Pair it with Record once the event has actually happened.
func (r *RateLimiter) Eligible(now time.Time, interval time.Duration) bool {
	return !r.fired || now.Sub(r.last) >= interval
}

// Record marks an event as fired at now.
func (r *RateLimiter) Record(now time.Time) {
	r.last = now
	r.fired = true
}

// Interval returns the configured minimum interval.
func (r *RateLimiter) Interval() time.Duration {
	return r.interval
}

// Reset forgets the last firing so the next Allow succeeds.
func (r *RateLimiter) Reset() {
	r.fired = false
}
