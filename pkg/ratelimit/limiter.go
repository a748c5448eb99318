package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates outbound image requests.
type Limiter interface {
	// Allow takes a token if one is available without blocking
	Allow() bool
	// Wait blocks until a token is taken or ctx ends
	Wait(ctx context.Context) error
	// Reset refills the limiter
	Reset()
}

// New returns a bucket admitting perMinute requests per minute, or an
// unlimited limiter when perMinute is zero or negative.
func New(perMinute int) Limiter {
	if perMinute <= 0 {
		return Unlimited{}
	}
	return NewTokenBucket(perMinute, time.Minute)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}

// TokenBucket holds up to capacity tokens and regains them continuously,
// one every period/capacity.
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	interval time.Duration // time to regain one token
	last     time.Time
	now      func() time.Time
}

// NewTokenBucket starts full. A full refill takes period.
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	interval := period / time.Duration(capacity)
	if interval <= 0 {
		interval = time.Nanosecond
	}
	return &TokenBucket{
		capacity: float64(capacity),
		tokens:   float64(capacity),
		interval: interval,
		last:     time.Now(),
		now:      time.Now,
	}
}

func (tb *TokenBucket) Allow() bool {
	_, ok := tb.take()
	return ok
}

// Wait sleeps for the shortfall between attempts.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delay, ok := tb.take()
		if ok {
			return nil
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

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.last = tb.now()
}

// Available reports the whole tokens currently in the bucket.
func (tb *TokenBucket) Available() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return int(tb.tokens)
}

// take consumes a token, or reports how long until one is due.
func (tb *TokenBucket) take() (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}

	missing := 1 - tb.tokens
	delay := time.Duration(missing * float64(tb.interval))
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	return delay, false
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.last)
	if elapsed <= 0 {
		return
	}
	tb.last = now
	tb.tokens += float64(elapsed) / float64(tb.interval)
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}
