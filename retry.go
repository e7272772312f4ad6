package mailsend

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// RetryManager handles retry logic for failed operations.
type RetryManager struct {
	config RetryConfig
}

// NewRetryManager creates a new retry manager with the given configuration.
func NewRetryManager(config RetryConfig) *RetryManager {
	return &RetryManager{
		config: config,
	}
}

// Retry executes the given function with retry logic.
func (r *RetryManager) Retry(ctx context.Context, fn func() error) error {
	if !r.config.Enabled {
		return fn()
	}

	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		// Don't retry if error is not retryable
		if !IsRetryable(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.calculateDelay(attempt)

		// Wait for the delay or context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			// Continue to next attempt
		}
	}

	return lastErr
}

// calculateDelay calculates the delay for the given attempt number.
func (r *RetryManager) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	// Add up to 10% jitter if enabled
	if r.config.Jitter {
		jitterRange := float64(delay) * 0.1
		maxJitter := int64(jitterRange)
		if maxJitter > 0 {
			jitterBig, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
			if err == nil {
				delay += time.Duration(jitterBig.Int64())
			}
		}
	}

	return delay
}
