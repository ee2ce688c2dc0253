package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/middleware"
)

// Delay levels between operations.
const (
	DelayNone   = "none"
	DelayMedium = "medium"
	DelayLong   = "long"
)

// DelayFor maps a delay level to a pause. Unknown levels mean no pause.
func DelayFor(level string) time.Duration {
	switch level {
	case DelayMedium:
		return 400 * time.Millisecond
	case DelayLong:
		return 2 * time.Second
	default:
		return 0
	}
}

// Delay returns middleware that pauses before each action executes.
// The pause ends early when ctx is cancelled.
func Delay(d time.Duration) middleware.Middleware {
	if d <= 0 {
		return middleware.Noop()
	}
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (action.Result, error) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return action.Result{}, ctx.Err()
			case <-timer.C:
			}
			return next(ctx, execCtx)
		}
	}
}
