package api

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("anon_a") || !rl.Allow("anon_a") {
		t.Fatal("first two requests must be allowed")
	}
	if rl.Allow("anon_a") {
		t.Fatal("third request in the window must be rejected")
	}
	if !rl.Allow("anon_b") {
		t.Fatal("other users are limited separately")
	}

	now = now.Add(time.Minute + time.Second)
	if !rl.Allow("anon_a") {
		t.Fatal("request after the window must be allowed")
	}
}

func TestRateLimiterEvict(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("anon_a")

	now = now.Add(2 * time.Minute)
	rl.evict()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.requests) != 0 {
		t.Errorf("expected idle keys to be evicted, have %d", len(rl.requests))
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	if rl != nil {
		t.Fatal("expected nil limiter for a zero limit")
	}
	for i := 0; i < 100; i++ {
		if !rl.Allow("anon_a") {
			t.Fatal("nil limiter must allow everything")
		}
	}
	rl.Close()
}
