package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork marks a failure to reach a remote backend. RedisCache wraps
// dial errors and timeouts with it.
var ErrNetwork = errors.New("cache backend unreachable")

// RetryableError marks a backend failure that may succeed on a later
// attempt. Decoding and protocol errors are never wrapped.
type RetryableError struct{ Err error }

// Retryable wraps err so that RetryWithBackoff tries again. It returns nil
// for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err, or anything it wraps, is a
// RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

const retryAttempts = 3

// retryDelay is the wait before the second attempt. It doubles after each
// failure.
var retryDelay = time.Second

// RetryWithBackoff calls fn until it succeeds, returns an error that is not
// Retryable, or has failed retryAttempts times. A cancelled ctx stops the
// wait between attempts.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	var err error
	delay := retryDelay
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) || attempt == retryAttempts {
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
