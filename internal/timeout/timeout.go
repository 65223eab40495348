// Package timeout bounds provider calls with a wall-clock deadline.
package timeout

import (
	"context"
	"time"

	"tryon/internal/domain"
)

// Do runs op under a deadline of d. op receives a context that is cancelled
// when the deadline passes, so HTTP calls made with it are aborted. If the
// deadline fires first Do returns a *domain.TimeoutError and any late result
// from op is discarded. The deadline timer is always released before Do
// returns. A non-positive d runs op without a deadline.
func Do[T any](ctx context.Context, d time.Duration, label string, op func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return op(ctx)
	}
	cause := &domain.TimeoutError{Label: label, Duration: d}
	opCtx, cancel := context.WithTimeoutCause(ctx, d, cause)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(opCtx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && context.Cause(opCtx) == cause {
			var zero T
			return zero, cause
		}
		return o.value, o.err
	case <-opCtx.Done():
		// Prefer a result that raced in with the deadline.
		select {
		case o := <-done:
			if o.err == nil {
				return o.value, nil
			}
		default:
		}
		var zero T
		return zero, context.Cause(opCtx)
	}
}
