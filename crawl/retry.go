package crawl

import (
	"context"
	"math"
	"time"
)

// Backoff describes exponential retry delays: Base before the second
// attempt, doubled for each further attempt and capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait after the given failed attempt (1-based).
// A non-positive Max leaves the delay uncapped.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 || b.Base <= 0 {
		return 0
	}
	limit := b.Max
	if limit <= 0 {
		limit = math.MaxInt64
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		if d > limit/2 {
			return limit
		}
		d *= 2
	}
	return min(d, limit)
}

// Delays returns the waits between attempts for the given total number of attempts.
func (b Backoff) Delays(attempts int) []time.Duration {
	if attempts <= 1 {
		return []time.Duration{}
	}
	delays := make([]time.Duration, attempts-1)
	for i := range delays {
		delays[i] = b.Delay(i + 1)
	}
	return delays
}

// AttemptFunc is one try of a retried operation. Attempts are numbered from 1.
type AttemptFunc func(ctx context.Context, attempt int) error

// RetryFunc is called before sleeping ahead of the next attempt.
type RetryFunc func(attempt int, delay time.Duration, err error)

// Retry calls fn until it succeeds, returns an error that retryable rejects,
// or len(delays)+1 attempts have been made. It sleeps delays[i] after the
// (i+1)th failure. A nil retryable retries every error.
//
// It returns the number of attempts made and the last error. If the context
// is canceled while waiting, the context error is returned.
func Retry(ctx context.Context, delays []time.Duration, retryable func(error) bool, fn AttemptFunc, onRetry RetryFunc) (int, error) {
	maxAttempts := len(delays) + 1 // 1 initial + N retries

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if attempt == maxAttempts || (retryable != nil && !retryable(err)) {
			return attempt, lastErr
		}

		// Check context before sleeping
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}

		delay := delays[attempt-1]
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}
	}

	return maxAttempts, lastErr
}
