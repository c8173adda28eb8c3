package runner

import (
	"context"
	"time"
)

// retry calls fn up to attempts times, each under its own timeout. It stops
// early once ctx is done and returns the last error seen.
func retry[T any](ctx context.Context, attempts int, timeout, backoff time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && backoff > 0 {
			select {
			case <-ctx.Done():
				return zero, lastErr
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		out, err := fn(callCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return zero, lastErr
}
