package backend

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig controls exponential backoff and attempt counts.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig retries twice with backoff starting at 300ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: 300 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
	}
}

func (r RetryConfig) normalized() RetryConfig {
	cfg := r
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 300 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return cfg
}

func (r RetryConfig) backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	base := float64(r.BaseBackoff) * math.Pow(2, float64(attempt-2))
	limit := float64(r.MaxBackoff)
	if base > limit {
		base = limit
	}

	// jitter 0.5x..1.5x
	d := time.Duration(base * (0.5 + rand.Float64()))
	if d > r.MaxBackoff {
		d = r.MaxBackoff
	}
	return d
}

// wait sleeps before the given attempt, returning early if ctx is done.
func (r RetryConfig) wait(ctx context.Context, attempt int) error {
	delay := r.backoffDelay(attempt)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
