package base

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/errors"
)

// RetryPolicy defines retry behavior
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	RandomizeFactor float64
}

// NewRetryPolicy creates a new retry policy with exponential backoff
func NewRetryPolicy(maxAttempts int, initialDelay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     maxAttempts,
		InitialDelay:    initialDelay,
		MaxDelay:        30 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0.25,
	}
}

// RetryPolicyFromConfig builds the policy described by the reliability section.
func RetryPolicyFromConfig(cfg config.ReliabilityConfig) *RetryPolicy {
	if cfg.RetryAttempts == 1 {
		return NoRetryPolicy()
	}
	rp := DefaultRetryPolicy()
	if cfg.RetryAttempts > 0 {
		rp.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		rp.InitialDelay = cfg.RetryDelay
	}
	if cfg.RetryMultiplier >= 1 {
		rp.Multiplier = cfg.RetryMultiplier
	}
	if cfg.MaxRetryDelay > 0 {
		rp.MaxDelay = cfg.MaxRetryDelay
	}
	return rp
}

// Execute runs fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. Only connection and timeout errors are retried.
func (rp *RetryPolicy) Execute(ctx context.Context, log *zap.Logger, fn func() error) error {
	return rp.ExecuteWithCondition(ctx, log, fn, errors.IsRetryable)
}

// ExecuteWithCondition runs a function with retry only if condition is met
func (rp *RetryPolicy) ExecuteWithCondition(ctx context.Context, log *zap.Logger, fn func() error, shouldRetry func(error) bool) error {
	var lastErr error
	attempts := rp.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := rp.calculateDelay(attempt)
		if log != nil {
			log.Warn("attempt failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", attempts),
				zap.Duration("delay", delay),
				zap.Error(err))
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Canceled(ctx.Err())
		case <-timer.C:
		}
	}

	return errors.Wrap(lastErr, errors.TypeOf(lastErr), fmt.Sprintf("all %d attempts failed", attempts))
}

// calculateDelay calculates the delay for a given attempt
func (rp *RetryPolicy) calculateDelay(attempt int) time.Duration {
	delay := float64(rp.InitialDelay) * math.Pow(rp.Multiplier, float64(attempt))

	if delay > float64(rp.MaxDelay) {
		delay = float64(rp.MaxDelay)
	}

	// jitter
	if rp.RandomizeFactor > 0 {
		delta := delay * rp.RandomizeFactor
		minDelay := delay - delta
		maxDelay := delay + delta
		delay = minDelay + (rand.Float64() * (maxDelay - minDelay)) //nolint:gosec // jitter only
	}

	return time.Duration(delay)
}

// GetDelay returns the delay for a specific attempt (for testing/preview)
func (rp *RetryPolicy) GetDelay(attempt int) time.Duration {
	return rp.calculateDelay(attempt)
}

// DefaultRetryPolicy returns a sensible default retry policy
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0.25,
	}
}

// NoRetryPolicy returns a policy that doesn't retry
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 1,
	}
}
