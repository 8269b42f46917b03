package resilience

import (
	"context"
	"fmt"
	"time"
)

// Retry defaults.
const (
	DefaultRetryMaxAttempts     = 3
	DefaultRetryInitialInterval = 100 * time.Millisecond
	DefaultRetryMaxInterval     = 5 * time.Second
	DefaultRetryMultiplier      = 2.0
)

// RetryConfig configures exponential backoff.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryConfig returns three attempts with doubling backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     DefaultRetryMaxAttempts,
		InitialInterval: DefaultRetryInitialInterval,
		MaxInterval:     DefaultRetryMaxInterval,
		Multiplier:      DefaultRetryMultiplier,
	}
}

// Retry runs fn up to MaxAttempts times with exponential backoff, honoring
// context cancellation between attempts.
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error
	interval := config.InitialInterval

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * config.Multiplier)
		if interval > config.MaxInterval {
			interval = config.MaxInterval
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", config.MaxAttempts, lastErr)
}

// RetryWithResult is Retry for functions that return a value.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	err := Retry(ctx, config, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}
