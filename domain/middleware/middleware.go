// Package middleware provides composable middleware around action execution.
package middleware

import (
	"context"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/policy"
)

// ExecutionContext carries what middleware may inspect about one action execution.
type ExecutionContext struct {
	// ProcessID identifies the running process.
	ProcessID string
	// Goal is the process goal name.
	Goal string
	// Step is the 1-based loop iteration.
	Step int
	// Action is the action being executed.
	Action *action.Action
	// PlanLength is the length of the plan the action heads.
	PlanLength int
	// Blackboard is the process blackboard. Middleware must not write to it;
	// bindings are merged by the process after the handler returns.
	Blackboard *blackboard.Blackboard
	// Usage is consumption before this action.
	Usage policy.Usage
}

// Handler executes an action and returns its result.
type Handler func(ctx context.Context, execCtx *ExecutionContext) (action.Result, error)

// Middleware wraps a Handler with additional behavior.
type Middleware func(next Handler) Handler

// Perform is the terminal handler: it invokes the action's performer.
func Perform(ctx context.Context, execCtx *ExecutionContext) (action.Result, error) {
	return execCtx.Action.Perform(ctx, execCtx.Blackboard)
}

// Chain composes middleware so that Chain(A, B, C)(h) runs A -> B -> C -> h.
func Chain(middlewares ...Middleware) Middleware {
	return func(final Handler) Handler {
		handler := final
		for i := len(middlewares) - 1; i >= 0; i-- {
			if middlewares[i] == nil {
				continue
			}
			handler = middlewares[i](handler)
		}
		return handler
	}
}

// Noop returns a middleware that passes through.
func Noop() Middleware {
	return func(next Handler) Handler {
		return next
	}
}
