// Package ratelimit provides per-tenant request limiting backed by
// token buckets. One noisy tenant exhausts its own bucket, never the
// capacity of others.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	// DefaultPerMinute is the sustained per-tenant request rate.
	DefaultPerMinute = 120

	// DefaultBurst is the short-term burst allowance.
	DefaultBurst = 20

	// sweepInterval is how often idle buckets are discarded.
	sweepInterval = 10 * time.Minute
)

// TenantLimiter hands out one token bucket per key.
type TenantLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*tenantBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type tenantBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing perMinute sustained requests per key
// with the given burst. Non-positive values fall back to defaults.
func New(perMinute, burst int) *TenantLimiter {
	if perMinute <= 0 {
		perMinute = DefaultPerMinute
	}
	if burst <= 0 {
		burst = DefaultBurst
	}

	return &TenantLimiter{
		buckets:   make(map[string]*tenantBucket),
		limit:     rate.Limit(float64(perMinute) / 60.0),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// Allow reports whether a request for key may proceed now. When it may
// not, retryAfter is the wait until a token becomes available.
func (l *TenantLimiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	now := time.Now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) > sweepInterval {
		l.sweepLocked(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &tenantBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	if b.limiter.Allow() {
		return true, 0
	}

	// Reserve tells us when the next token lands; cancel so the probe
	// does not consume it.
	r := b.limiter.Reserve()
	retryAfter = r.Delay()
	r.Cancel()

	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return false, retryAfter
}

// Keys returns how many buckets are live, for metrics.
func (l *TenantLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweepLocked drops buckets that have been idle for a full sweep
// interval. Callers hold l.mu.
func (l *TenantLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > sweepInterval {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
