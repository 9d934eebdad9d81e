package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/galynx-chat/galynx-server/internal/ratelimit"
)

func setupMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLimiter_AllowsWithinBudget(t *testing.T) {
	rdb := setupMiniredis(t)
	l := ratelimit.New(rdb)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := l.Allow(ctx, "ip:1.2.3.4:email:e@x", 5, 60*time.Second)
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed within budget of 5", i+1)
		}
	}
}

func TestLimiter_RejectsOverBudget(t *testing.T) {
	rdb := setupMiniredis(t)
	l := ratelimit.New(rdb)
	ctx := context.Background()

	const limit = 3
	for i := 0; i < limit; i++ {
		allowed, err := l.Allow(ctx, "user:u1", limit, 60*time.Second)
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be within budget", i+1)
		}
	}

	allowed, err := l.Allow(ctx, "user:u1", limit, 60*time.Second)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed {
		t.Fatalf("request over budget should be rejected")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	rdb := setupMiniredis(t)
	l := ratelimit.New(rdb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Allow(ctx, "user:a", 3, 60*time.Second); err != nil {
			t.Fatalf("Allow: %v", err)
		}
	}
	allowed, err := l.Allow(ctx, "user:b", 3, 60*time.Second)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !allowed {
		t.Fatalf("a different key should have its own independent budget")
	}
}
