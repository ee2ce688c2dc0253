package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/middleware"
)

// Timeout returns middleware that bounds each execution by the action's own
// timeout, or by fallback when the action declares none. A zero fallback
// leaves such actions unbounded. Expiry surfaces as middleware.ErrActionTimeout.
func Timeout(fallback time.Duration) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (action.Result, error) {
			limit := execCtx.Action.Timeout()
			if limit <= 0 {
				limit = fallback
			}
			if limit <= 0 {
				return next(ctx, execCtx)
			}

			ctx, cancel := context.WithTimeout(ctx, limit)
			defer cancel()

			type outcome struct {
				result action.Result
				err    error
			}
			done := make(chan outcome, 1)
			go func() {
				r, err := next(ctx, execCtx)
				done <- outcome{r, err}
			}()

			select {
			case o := <-done:
				if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) && ctx.Err() != nil {
					return o.result, timeoutError(execCtx, limit)
				}
				return o.result, o.err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return action.Result{}, timeoutError(execCtx, limit)
				}
				return action.Result{}, ctx.Err()
			}
		}
	}
}

func timeoutError(execCtx *middleware.ExecutionContext, limit time.Duration) error {
	return fmt.Errorf("%w: %s after %s", middleware.ErrActionTimeout, execCtx.Action.Name(), limit)
}
