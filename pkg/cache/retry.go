package cache

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a failure worth another attempt, such as a refused
// connection while Redis is still starting.
type RetryableError struct{ Err error }

// Retryable wraps err so [Backoff.Do] retries it. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff retries an operation with a doubling delay.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// DefaultBackoff makes three attempts, one second apart at first.
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second}

// Do calls fn until it succeeds, returns an error not marked [Retryable],
// or runs out of attempts. The last error is returned, or ctx.Err() if ctx
// ends while waiting.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	delay := b.Delay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt >= b.Attempts {
			return err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

// RetryWithBackoff runs fn under [DefaultBackoff].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultBackoff.Do(ctx, fn)
}
