package shared

import (
	"context"
	"time"
)

// PollUntil calls fn up to maxAttempts times, waiting interval after each
// call that did not report done. found is true when fn reported done before
// the ceiling. A non-nil error from fn, or ctx cancellation, ends polling.
func PollUntil(ctx context.Context, maxAttempts int, interval time.Duration, fn func(attempt int) (done bool, err error)) (bool, error) {
	for i := 0; i < maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		done, err := fn(i)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		if i < maxAttempts-1 && !SleepCtx(ctx, interval) {
			return false, ctx.Err()
		}
	}
	return false, nil
}

// SleepCtx waits for d or returns false early if ctx is done.
func SleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
