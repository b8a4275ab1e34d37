package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWouldExceedDeadline is returned by Wait when the context deadline
// arrives before a token would.
var ErrWouldExceedDeadline = errors.New("rate limit wait would exceed context deadline")

// TokenBucket is a token bucket rate limiter. Tokens are fractional so slow
// rates refill smoothly. It is safe for concurrent use.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket creates a full bucket holding capacity tokens and refilling
// at refillRate tokens per second. A capacity below one is raised to one.
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	tb := &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		now:        time.Now,
	}
	tb.lastRefill = tb.now()
	return tb
}

// Take consumes a token if one is available.
func (tb *TokenBucket) Take() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available and consumes it. It returns early
// with the context error when ctx ends, or with ErrWouldExceedDeadline when
// the deadline is known to come first.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		delay, ok := tb.reserve()
		if ok {
			return nil
		}

		if deadline, has := ctx.Deadline(); has && tb.now().Add(delay).After(deadline) {
			return ErrWouldExceedDeadline
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token, or reports how long until one is available.
func (tb *TokenBucket) reserve() (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}
	if tb.refillRate <= 0 {
		// Never refills: wait on the context alone.
		return time.Hour, false
	}
	return time.Duration((1 - tb.tokens) / tb.refillRate * float64(time.Second)), false
}

// Remaining returns the whole tokens currently available.
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return int(tb.tokens)
}

func (tb *TokenBucket) refillLocked() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.lastRefill = now
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}
