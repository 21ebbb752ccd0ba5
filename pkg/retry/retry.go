// Package retry retries operations with exponential backoff.
//
// It wraps github.com/cenkalti/backoff/v5 and uses the error categories from
// pkg/errors to decide what is worth retrying: by default only Temporary
// errors are, so a rejected COPY is not replayed while a dropped connection is.
//
// Example usage:
//
//	cfg := retry.Config{
//		MaxAttempts:  5,
//		InitialDelay: 200 * time.Millisecond,
//		MaxDelay:     5 * time.Second,
//		Notify: func(err error, next time.Duration) {
//			selfLog.Warn().Err(err).Dur("retry_in", next).Msg("batch write failed")
//		},
//	}
//
//	n, err := retry.DoWithData(ctx, cfg, func() (int64, error) {
//		return writeBatch(ctx, rows)
//	})
package retry

import (
	"context"

	"github.com/cenkalti/backoff/v5"
)

// Do executes fn until it succeeds, the policy rejects its error, the
// attempts or elapsed time run out, or ctx is done.
// Returns the error from the last attempt if all retries are exhausted.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithData(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithData is Do for functions that return a value.
func DoWithData[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	operation := func() (T, error) {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !cfg.shouldRetry(err) {
			var zero T
			return zero, backoff.Permanent(err)
		}
		return result, err
	}

	return backoff.Retry(ctx, operation, cfg.options()...)
}

// options translates the config into backoff retry options.
func (c Config) options() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialDelay
	b.MaxInterval = c.MaxDelay
	b.Multiplier = c.Multiplier
	b.RandomizationFactor = c.Jitter

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
	}
	if c.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(c.MaxAttempts))
	}
	if c.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(c.MaxElapsedTime))
	}
	if c.Notify != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(c.Notify)))
	}
	return opts
}
