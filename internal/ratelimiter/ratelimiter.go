// Package ratelimiter throttles repository and blob-store calls issued by
// bulk operations such as cascading deletes.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Config describes a token bucket.
type Config struct {
	// OpsPerSecond is the sustained dispatch rate. Zero disables throttling.
	OpsPerSecond uint `mapstructure:"ops_per_second" yaml:"ops_per_second"`

	// Burst is the bucket capacity. Zero defaults to OpsPerSecond.
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// RateLimiter is a context-aware token bucket.
//
// A nil *RateLimiter is valid and never blocks, so callers can hold an
// optional limiter without nil checks.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter from cfg. Returns nil when throttling is disabled.
func New(cfg Config) *RateLimiter {
	if cfg.OpsPerSecond == 0 {
		return nil
	}

	burst := cfg.Burst
	if burst == 0 {
		burst = cfg.OpsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.OpsPerSecond), int(burst)),
	}
}

// Wait blocks until one operation may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// Allow consumes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.Allow()
}

// Limit returns the sustained rate, or rate.Inf when disabled.
func (r *RateLimiter) Limit() rate.Limit {
	if r == nil {
		return rate.Inf
	}
	return r.limiter.Limit()
}

// Burst returns the bucket capacity, or 0 when disabled.
func (r *RateLimiter) Burst() int {
	if r == nil {
		return 0
	}
	return r.limiter.Burst()
}
