// Package retry bounds transient-failure retries on external calls.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const initialInterval = 200 * time.Millisecond

// Do runs op with exponential backoff until it succeeds, the attempt budget
// is spent, or ctx is done. maxAttempts counts the first try; a budget of 3
// means at most two retries.
func Do(ctx context.Context, maxAttempts uint64, op func() error) error {
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, maxAttempts-1), ctx))
}

// Permanent marks err as non-retryable so Do stops immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
