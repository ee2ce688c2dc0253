// Package planner provides goal-directed planners over action sets.
package planner

import (
	"context"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
)

// Request contains everything a planner needs for one planning call.
type Request struct {
	// ProcessID identifies the calling process, for logging only.
	ProcessID string
	// World is the world state at planning time.
	World condition.WorldState
	// Actions is the candidate action set.
	Actions []*action.Action
	// Goal is the goal to plan toward.
	Goal *action.Goal
	// Blackboard is passed to dynamic cost functions. It may be nil.
	Blackboard *blackboard.Blackboard
}

// Planner finds a plan toward a goal.
type Planner interface {
	// PlanToGoal returns a plan, or nil with a nil error when the goal is
	// unreachable. Errors are reserved for malformed input and cancellation.
	PlanToGoal(ctx context.Context, req Request) (*action.Plan, error)
}

// Func adapts a function to the Planner interface.
type Func func(ctx context.Context, req Request) (*action.Plan, error)

// PlanToGoal implements Planner.
func (f Func) PlanToGoal(ctx context.Context, req Request) (*action.Plan, error) {
	return f(ctx, req)
}
