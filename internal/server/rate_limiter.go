// Package server implements per-connection event throttling so one noisy
// client cannot flood the hub.
package server

import (
	"math"
	"sync"
	"time"
)

// tokenBucket throttles inbound events. Each event costs one token; tokens
// refill continuously at capacity per refill interval, capped at capacity.
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	limit  float64
	perSec float64
	last   time.Time
}

func newTokenBucket(capacity int, interval time.Duration) *tokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return &tokenBucket{
		tokens: float64(capacity),
		limit:  float64(capacity),
		perSec: float64(capacity) / interval.Seconds(),
		last:   time.Now(),
	}
}

// take consumes one token, reporting whether the event may proceed.
func (b *tokenBucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.limit, b.tokens+elapsed*b.perSec)
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
