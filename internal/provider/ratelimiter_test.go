package provider

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Fatalf("burst waits should return immediately")
	}
	if limiter.Available() != 0 {
		t.Fatalf("expected empty bucket, got %d", limiter.Available())
	}
}

func TestRateLimiterRefillUsesClock(t *testing.T) {
	limiter := NewRateLimiter(3, time.Second)
	now := limiter.lastRefill
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		limiter.Wait(context.Background())
	}
	now = now.Add(2500 * time.Millisecond)
	if got := limiter.Available(); got != 2 {
		t.Fatalf("expected 2 tokens after 2.5 intervals, got %d", got)
	}
	now = now.Add(time.Hour)
	if got := limiter.Available(); got != 3 {
		t.Fatalf("bucket should cap at max, got %d", got)
	}
}

func TestRateLimiterWaitsForNextToken(t *testing.T) {
	limiter := NewRateLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("expected token after refill, got %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("second wait should block until the refill")
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(1, time.Second)
	ctx := context.Background()
	_ = limiter.Wait(ctx)

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := limiter.Wait(timeoutCtx); err == nil {
		t.Fatal("expected context deadline error")
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Fatalf("wait should stop after context cancellation")
	}
}
