// Package retry runs operations under a bounded attempt policy.
package retry

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a failure as transient. Wrap provider errors such as
// rate limits, 5xx responses or moderation blocks with it so a Policy tries
// the call again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err or anything it wraps is a RetryableError.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Policy bounds how an operation is retried. The zero value makes a single
// attempt.
type Policy struct {
	MaxAttempts int
	// Delay is waited between attempts. Backoff multiplies it after each
	// failed attempt; values below 1 keep the delay fixed.
	Delay   time.Duration
	Backoff float64
	// Retryable classifies errors; nil means IsRetryable.
	Retryable func(error) bool
	// OnRetry is called before sleeping ahead of attempt number next.
	OnRetry func(next int, err error)
}

// Default mirrors the generation defaults: 3 attempts, 10 s apart.
func Default() Policy {
	return Policy{MaxAttempts: 3, Delay: 10 * time.Second}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. The last error is returned, or ctx.Err() when cancelled
// while waiting.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)
	classify := p.Retryable
	if classify == nil {
		classify = IsRetryable
	}
	delay := p.Delay

	var lastErr error
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		err := fn(ctx, i)
		if err == nil {
			return nil
		}
		lastErr = err
		if !classify(err) || i == attempts {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(i+1, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		if p.Backoff > 1 {
			delay = time.Duration(float64(delay) * p.Backoff)
		}
	}
	return lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
