package gateway

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/physbench/physbench/internal/models"
)

// RetryConfig is the per-client retry policy.
type RetryConfig struct {
	// MaxRetries is the attempt budget; transient failures are retried at
	// most MaxRetries-1 times.
	MaxRetries     int
	InitialBackoff time.Duration
	RequestTimeout time.Duration
}

// DefaultRetryConfig returns the default policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     models.DefaultMaxRetries,
		InitialBackoff: models.DefaultInitialBackoff,
		RequestTimeout: models.DefaultRequestTimeout,
	}
}

// RetryConfigFromSpec maps the spec's gateway section to a policy.
func RetryConfigFromSpec(g models.GatewayConfig) RetryConfig {
	cfg := DefaultRetryConfig()
	if g.MaxRetries > 0 {
		cfg.MaxRetries = g.MaxRetries
	}
	if g.InitialBackoff > 0 {
		cfg.InitialBackoff = g.InitialBackoff
	}
	if g.RequestTimeout > 0 {
		cfg.RequestTimeout = g.RequestTimeout
	}
	return cfg
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Millisecond
	}
	return c
}

// Each delay is drawn from [2/3, 4/3] of base*4^k with base = 1.5*initial,
// so delays start at initial and at least double per retry while staying
// jittered across parallel clients.
const (
	backoffMultiplier    = 4
	backoffRandomization = 1.0 / 3
)

// newBackOff returns a fresh delay schedule for one call.
func newBackOff(initial time.Duration) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initial * 3 / 2
	bo.Multiplier = backoffMultiplier
	bo.RandomizationFactor = backoffRandomization
	bo.MaxInterval = time.Duration(math.MaxInt64)
	return bo
}

// nextDelay takes the next interval from bo, floored at initial for the
// first retry and at twice prev afterwards.
func nextDelay(bo backoff.BackOff, initial, prev time.Duration) time.Duration {
	d := bo.NextBackOff()
	if prev == 0 {
		return max(d, initial)
	}
	return max(d, 2*prev)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
