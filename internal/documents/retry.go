package documents

import (
	"context"
	"errors"
	"time"

	"healthjournal-backend/internal/llm"
)

// RetryPolicy retries an operation with error-dependent backoff. The sleep
// function is injectable so tests can assert delays without waiting.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int, err error) time.Duration
	Retryable   func(err error) bool
	Sleep       func(ctx context.Context, d time.Duration) error
}

const rateLimitBaseDelay = 5 * time.Second

// DefaultRetryPolicy is the pipeline's policy: 3 attempts total, exponential
// backoff (5s, 10s, 20s) on rate-limit errors only.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     RateLimitBackoff(rateLimitBaseDelay),
		Retryable:   DefaultRetryable,
	}
}

// RateLimitBackoff doubles the base delay per attempt for rate-limit errors
// and retries everything else immediately.
func RateLimitBackoff(base time.Duration) func(int, error) time.Duration {
	return func(attempt int, err error) time.Duration {
		if llm.IsRateLimited(err) {
			return base << (attempt - 1)
		}
		return 0
	}
}

// DefaultRetryable retries everything except a dead context.
func DefaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do runs op up to MaxAttempts times and returns the last error.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if p.Retryable != nil && !p.Retryable(err) {
			break
		}
		if p.Backoff != nil {
			if delay := p.Backoff(attempt, err); delay > 0 {
				if sleepErr := sleep(ctx, delay); sleepErr != nil {
					return err
				}
			}
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
