package service

import (
	"sync"
	"time"
)

const (
	bucketIdleTTL       = 10 * time.Minute
	bucketSweepInterval = 5 * time.Minute
)

// TokenBucket is an in-memory per-key rate limiter. Player events are keyed
// by viewer so one noisy tab cannot starve the store. Safe for concurrent use.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     float64 // tokens added per second
	capacity float64
	now      func() time.Time
	sweep    *sweeper
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a limiter that allows bursts of capacity per key,
// refilling at rate tokens per second. Idle buckets are swept in the
// background until Close is called.
func NewTokenBucket(rate, capacity float64) *TokenBucket {
	tb := &TokenBucket{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		capacity: capacity,
		now:      time.Now,
	}
	tb.sweep = startSweeper(bucketSweepInterval, tb.evictIdle)
	return tb
}

// Allow consumes one token for key and reports whether one was available.
func (tb *TokenBucket) Allow(key string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, last: now}
		tb.buckets[key] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	b.tokens = min(b.tokens+elapsed*tb.rate, tb.capacity)
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Len returns the number of tracked keys.
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

// Close stops the background sweep.
func (tb *TokenBucket) Close() {
	tb.sweep.stop()
}

func (tb *TokenBucket) evictIdle(now time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	cutoff := now.Add(-bucketIdleTTL)
	for key, b := range tb.buckets {
		if b.last.Before(cutoff) {
			delete(tb.buckets, key)
		}
	}
}
