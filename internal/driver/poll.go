package driver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultPollInterval is used by Poll when interval is not positive
const DefaultPollInterval = 50 * time.Millisecond

// Poll evaluates cond immediately and then every interval until it reports
// true, returns an error, or ctx is done. An expired deadline is reported as
// ErrTimeout wrapping the context error.
func Poll(ctx context.Context, interval time.Duration, cond func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			return TimeoutOrErr(ctx, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return TimeoutOrErr(ctx, ctx.Err())
		case <-ticker.C:
		}
	}
}

// TimeoutOrErr maps an error caused by an expired ctx deadline to ErrTimeout.
// Other errors, including cancellation, are returned unchanged.
func TimeoutOrErr(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
