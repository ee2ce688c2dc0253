package middleware

import (
	"context"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/middleware"
	"github.com/felixgeelhaar/goap/infrastructure/resilience"
)

// Resilience returns middleware that runs the rest of the chain through the
// executor's bulkhead, circuit breaker and the action's declared retries.
func Resilience(executor *resilience.Executor) middleware.Middleware {
	if executor == nil {
		executor = resilience.NewDefaultExecutor()
	}
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (action.Result, error) {
			return executor.Run(ctx, execCtx.Action, func(ctx context.Context) (action.Result, error) {
				return next(ctx, execCtx)
			})
		}
	}
}
