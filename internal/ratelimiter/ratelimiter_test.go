package ratelimiter

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantNil   bool
		wantBurst int
	}{
		{name: "disabled", cfg: Config{}, wantNil: true},
		{name: "burst defaults to rate", cfg: Config{OpsPerSecond: 50}, wantBurst: 50},
		{name: "explicit burst", cfg: Config{OpsPerSecond: 10, Burst: 25}, wantBurst: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.cfg)
			if tt.wantNil {
				if limiter != nil {
					t.Fatal("expected nil limiter when disabled")
				}
				return
			}
			if limiter == nil {
				t.Fatal("New() returned nil")
			}
			if got := limiter.Burst(); got != tt.wantBurst {
				t.Fatalf("Burst() = %d, want %d", got, tt.wantBurst)
			}
		})
	}
}

func TestNilLimiter(t *testing.T) {
	var limiter *RateLimiter

	if !limiter.Allow() {
		t.Fatal("nil limiter must allow")
	}
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if limiter.Limit() != rate.Inf {
		t.Fatalf("Limit() = %v, want Inf", limiter.Limit())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("Wait() on cancelled context should fail")
	}
}

func TestAllowEnforcesBurst(t *testing.T) {
	limiter := New(Config{OpsPerSecond: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("op %d should be allowed within burst", i)
		}
	}
	if limiter.Allow() {
		t.Fatal("op beyond burst should be rejected")
	}
}

func TestWaitCancelled(t *testing.T) {
	limiter := New(Config{OpsPerSecond: 1, Burst: 1})
	if !limiter.Allow() {
		t.Fatal("first op should be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("Wait() should fail before the next token arrives")
	}
}
