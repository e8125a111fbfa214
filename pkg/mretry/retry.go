// Package mretry wraps cenkalti/backoff with context-aware helpers for
// retrying operations that fail transiently. No other package in this
// module calls it.
package mretry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Do retries op with exponential backoff until it succeeds, ctx is
// cancelled, or maxElapsed has passed.
func Do(ctx context.Context, maxElapsed time.Duration, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// DoWithResult retries op the same way as Do, returning its result on
// eventual success.
func DoWithResult[T any](ctx context.Context, maxElapsed time.Duration, op func() (T, error)) (T, error) {
	var result T

	err := Do(ctx, maxElapsed, func() error {
		v, err := op()
		if err != nil {
			return err
		}

		result = v

		return nil
	})

	return result, err
}
