package github

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	maxRetryAttempts  = 5
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 10 * time.Second
)

// retryUnrecoverable marks an error as terminal so retryWithBackoff returns
// it immediately instead of burning attempts on a 4xx.
func retryUnrecoverable(err error) error {
	return retry.Unrecoverable(err)
}

// retryWithBackoff executes fn with exponential backoff and jitter.
func retryWithBackoff(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(maxRetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("github request retry", "operation", operation, "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
}
