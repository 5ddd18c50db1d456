// Package ratelimit provides a keyed token bucket limiter.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepInterval is the minimum time between scans for idle buckets.
const sweepInterval = time.Minute

// KeyedRateLimiter manages one independent token bucket per key.
// Buckets that have refilled completely are dropped on the next sweep,
// since a full bucket behaves exactly like a new one.
type KeyedRateLimiter struct {
	mu        sync.RWMutex
	limiters  map[string]*rate.Limiter
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

// New creates a keyed limiter allowing rps requests per second with the given burst.
// A non-positive rps disables limiting.
func New(rps float64, burst int) *KeyedRateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request for key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	if krl.limit == rate.Inf {
		return true
	}
	now := krl.now()
	return krl.getLimiter(key, now).AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.RLock()
	defer krl.mu.RUnlock()
	return len(krl.limiters)
}

func (krl *KeyedRateLimiter) getLimiter(key string, now time.Time) *rate.Limiter {
	krl.mu.RLock()
	limiter, exists := krl.limiters[key]
	krl.mu.RUnlock()
	if exists {
		return limiter
	}

	krl.mu.Lock()
	defer krl.mu.Unlock()

	if limiter, exists = krl.limiters[key]; exists {
		return limiter
	}
	if now.Sub(krl.lastSweep) >= sweepInterval {
		krl.sweepLocked(now)
	}
	limiter = rate.NewLimiter(krl.limit, krl.burst)
	krl.limiters[key] = limiter
	return limiter
}

func (krl *KeyedRateLimiter) sweepLocked(now time.Time) {
	full := float64(krl.burst)
	for key, limiter := range krl.limiters {
		if limiter.TokensAt(now) >= full {
			delete(krl.limiters, key)
		}
	}
	krl.lastSweep = now
}
