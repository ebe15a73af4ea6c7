// Package retry provides a bounded, fixed-delay retry policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy retries an operation up to MaxAttempts times, sleeping Delay between
// attempts. There is no sleep after the final attempt.
type Policy struct {
	MaxAttempts uint
	Delay       time.Duration
	// Retryable reports whether a failed attempt may be retried. Nil retries everything.
	Retryable func(error) bool
	// OnRetry, if set, is called before each pause with the failed attempt's index.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Do runs op until it succeeds, returns a non-retryable error, the attempt
// ceiling is reached, or ctx is done. It returns the index of the last attempt
// made (1-based) and that attempt's error.
func (p Policy) Do(ctx context.Context, op func(attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op(attempt)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if p.OnRetry != nil {
				p.OnRetry(attempt, err, wait)
			}
		}),
	)
	return attempt, err
}
