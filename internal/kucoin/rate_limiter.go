package kucoin

import (
	"sync"
	"time"
)

// Per-endpoint weights for the KuCoin public REST pool. The public pool
// allows 2000 weight per 30 second window per IP.
var endpointWeights = map[string]int{
	"/api/v1/market/candles":          3,
	"/api/v1/market/orderbook/level1": 2,
	"/api/v1/market/allTickers":       15,
	"/api/v1/market/stats":            15,
}

// RateLimiter tracks weight consumption against the public pool window and
// opens a cooldown circuit after the exchange throttles us.
type RateLimiter struct {
	mu sync.Mutex

	currentWeight int
	maxWeight     int
	windowResetAt time.Time

	throttledUntil   time.Time
	throttleBackoffs int
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		maxWeight:     2000,
		windowResetAt: time.Now().Add(30 * time.Second),
	}
}

// Allow reports whether a request to endpoint fits in the current window
// and records its weight when it does.
func (r *RateLimiter) Allow(endpoint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Before(r.throttledUntil) {
		return false
	}
	if now.After(r.windowResetAt) {
		r.currentWeight = 0
		r.windowResetAt = now.Add(30 * time.Second)
		r.throttleBackoffs = 0
	}

	weight := endpointWeight(endpoint)
	if r.currentWeight+weight > r.maxWeight {
		return false
	}
	r.currentWeight += weight
	return true
}

// RecordThrottle registers an HTTP 429 from the exchange and opens the
// cooldown with exponential backoff, capped at five minutes.
func (r *RateLimiter) RecordThrottle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.throttleBackoffs++
	backoff := time.Duration(1<<uint(r.throttleBackoffs)) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	r.throttledUntil = time.Now().Add(backoff)
}

// CooldownRemaining returns how long the limiter stays closed, zero when open.
func (r *RateLimiter) CooldownRemaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := time.Until(r.throttledUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func endpointWeight(endpoint string) int {
	if w, ok := endpointWeights[endpoint]; ok {
		return w
	}
	return 1
}
