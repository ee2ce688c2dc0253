// Package middleware provides action execution middleware for the process loop.
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/middleware"
	"github.com/felixgeelhaar/goap/infrastructure/logging"
)

// LoggingConfig configures the logging middleware.
type LoggingConfig struct {
	// LogBindings logs the names of bindings an action produced.
	LogBindings bool
}

// Logging returns middleware that logs action execution.
func Logging(cfg LoggingConfig) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (action.Result, error) {
			start := time.Now()
			name := execCtx.Action.Name()

			logging.Debug().
				Add(logging.ProcessID(execCtx.ProcessID)).
				Add(logging.Step(execCtx.Step)).
				Add(logging.ActionName(name)).
				Msg("executing action")

			result, err := next(ctx, execCtx)
			duration := time.Since(start)

			if err != nil {
				logging.Error().
					Add(logging.ProcessID(execCtx.ProcessID)).
					Add(logging.ActionName(name)).
					Add(logging.ErrorField(err)).
					Add(logging.Duration(duration)).
					Msg("action failed")
				return result, err
			}

			entry := logging.Debug().
				Add(logging.ProcessID(execCtx.ProcessID)).
				Add(logging.ActionName(name)).
				Add(logging.Duration(duration)).
				Add(logging.Tokens(result.Tokens))
			if cfg.LogBindings && len(result.Bindings) > 0 {
				entry = entry.Add(logging.Str("bindings", strings.Join(result.Bindings.Names(), ",")))
			}
			entry.Msg("action executed")

			return result, nil
		}
	}
}
