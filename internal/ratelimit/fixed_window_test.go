package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestFixedWindowLimiterTake(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	ctx := context.Background()

	first, err := limiter.Take(ctx, "203.0.113.5")
	if err != nil || !first.Allowed || first.Remaining != 1 {
		t.Fatalf("first take = %+v, err %v", first, err)
	}
	second, err := limiter.Take(ctx, "203.0.113.5")
	if err != nil || !second.Allowed || second.Remaining != 0 {
		t.Fatalf("second take = %+v, err %v", second, err)
	}
	third, err := limiter.Take(ctx, "203.0.113.5")
	if err != nil {
		t.Fatalf("third take: %v", err)
	}
	if third.Allowed {
		t.Fatalf("third submission should be blocked")
	}
	if third.RetryAfter <= 0 || third.RetryAfter > time.Minute {
		t.Fatalf("retry after = %v, want within window", third.RetryAfter)
	}

	other, err := limiter.Take(ctx, "198.51.100.1")
	if err != nil || !other.Allowed {
		t.Fatalf("other key should have its own quota: %+v %v", other, err)
	}
}

func TestFixedWindowLimiterFailsClosed(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 1, time.Second)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	redis.Close()
	if limiter.Allow("ip-1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
	if _, err := limiter.Take(context.Background(), "ip-1"); err == nil {
		t.Fatalf("expected take to surface the redis error")
	}
}

func TestFixedWindowLimiterConstructorValidation(t *testing.T) {
	if l, err := NewRedisFixedWindowLimiter("", "", "p", 1, time.Second); err == nil || l != nil {
		t.Fatalf("expected constructor error for empty redis addr")
	}
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "p", 0, time.Second); err == nil {
		t.Fatalf("expected constructor error for zero limit")
	}
}
