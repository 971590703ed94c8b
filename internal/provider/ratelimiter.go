package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket: maxTokens calls, one token back every refillInterval.
type RateLimiter struct {
	mu             sync.Mutex
	tokens         int
	maxTokens      int
	refillInterval time.Duration
	lastRefill     time.Time
	now            func() time.Time
}

func NewRateLimiter(maxTokens int, refillInterval time.Duration) *RateLimiter {
	if maxTokens < 1 {
		maxTokens = 1
	}
	r := &RateLimiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillInterval: refillInterval,
		now:            time.Now,
	}
	r.lastRefill = r.now()
	return r
}

// Wait takes a token, sleeping until the next refill when the bucket is empty.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay, ok := r.take()
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

// Available reports the tokens left after refilling.
func (r *RateLimiter) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill(r.now())
	return r.tokens
}

func (r *RateLimiter) take() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.refill(now)
	if r.tokens > 0 {
		r.tokens--
		return 0, true
	}
	return r.lastRefill.Add(r.refillInterval).Sub(now), false
}

func (r *RateLimiter) refill(now time.Time) {
	if r.refillInterval <= 0 {
		r.tokens = r.maxTokens
		return
	}
	n := int(now.Sub(r.lastRefill) / r.refillInterval)
	if n <= 0 {
		return
	}
	r.tokens = min(r.tokens+n, r.maxTokens)
	r.lastRefill = r.lastRefill.Add(time.Duration(n) * r.refillInterval)
}
