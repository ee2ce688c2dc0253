// Package action defines the immutable action, goal and plan model used by
// planners and processes.
package action

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
)

// Result is what a performer reports back after a successful execution.
type Result struct {
	// Bindings are merged into the blackboard in order.
	Bindings blackboard.Bindings
	// Tokens is the number of model tokens consumed, if any.
	Tokens int
}

// Performer carries out an action's side effect.
type Performer func(ctx context.Context, bb *blackboard.Blackboard) (Result, error)

// CostFunc computes an action's cost from current blackboard contents.
// The blackboard may be nil when planning without one.
type CostFunc func(bb *blackboard.Blackboard) float64

// RetryPolicy describes how an action's own performer should be retried
// before it reports failure.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// Action is a named unit of work. It is immutable once built and may be
// shared by concurrently running processes.
type Action struct {
	name          string
	description   string
	preconditions map[string]condition.Determination
	effects       map[string]condition.Determination
	staticCost    float64
	costFunc      CostFunc
	value         float64
	canRerun      bool
	timeout       time.Duration
	retry         RetryPolicy
	performer     Performer
}

// Name returns the action name.
func (a *Action) Name() string {
	return a.name
}

// Description returns the action description.
func (a *Action) Description() string {
	return a.description
}

// Preconditions returns a copy of the required condition values.
func (a *Action) Preconditions() map[string]condition.Determination {
	return copyConditions(a.preconditions)
}

// Effects returns a copy of the condition values established on success.
func (a *Action) Effects() map[string]condition.Determination {
	return copyConditions(a.effects)
}

// PreconditionCount returns the number of declared preconditions.
func (a *Action) PreconditionCount() int {
	return len(a.preconditions)
}

// Precondition returns the required value for name, if declared.
func (a *Action) Precondition(name string) (condition.Determination, bool) {
	d, ok := a.preconditions[name]
	return d, ok
}

// Effect returns the established value for name, if declared.
func (a *Action) Effect(name string) (condition.Determination, bool) {
	d, ok := a.effects[name]
	return d, ok
}

// Cost evaluates the action's cost against bb.
func (a *Action) Cost(bb *blackboard.Blackboard) float64 {
	if a.costFunc != nil {
		return a.costFunc(bb)
	}
	return a.staticCost
}

// HasDynamicCost reports whether the cost depends on the blackboard.
func (a *Action) HasDynamicCost() bool {
	return a.costFunc != nil
}

// Value returns the action's value to a utility planner.
func (a *Action) Value() float64 {
	return a.value
}

// CanRerun reports whether the action may execute more than once per process.
func (a *Action) CanRerun() bool {
	return a.canRerun
}

// Timeout returns the action's execution timeout. Zero means none.
func (a *Action) Timeout() time.Duration {
	return a.timeout
}

// Retry returns the action's own retry policy.
func (a *Action) Retry() RetryPolicy {
	return a.retry
}

// Performer returns the side-effect callback, or nil for planning-only actions.
func (a *Action) Performer() Performer {
	return a.performer
}

// ApplicableIn reports whether every precondition matches ws.
func (a *Action) ApplicableIn(ws condition.WorldState) bool {
	return ws.Satisfies(a.preconditions)
}

// Perform invokes the performer.
func (a *Action) Perform(ctx context.Context, bb *blackboard.Blackboard) (Result, error) {
	if a.performer == nil {
		return Result{}, fmt.Errorf("%s: %w", a.name, ErrNoPerformer)
	}
	return a.performer(ctx, bb)
}

// String returns the action name.
func (a *Action) String() string {
	return a.name
}

// ConditionNames returns every condition name referenced by the actions and goals.
func ConditionNames(actions []*Action, goals ...*Goal) []string {
	maps := make([]map[string]condition.Determination, 0, 2*len(actions)+len(goals))
	for _, a := range actions {
		maps = append(maps, a.preconditions, a.effects)
	}
	for _, g := range goals {
		maps = append(maps, g.preconditions)
	}
	return condition.SortedNames(maps...)
}

// ValidateSet checks that every action in the set is executable and uniquely named.
func ValidateSet(actions []*Action) error {
	seen := make(map[string]struct{}, len(actions))
	for i, a := range actions {
		if a == nil {
			return fmt.Errorf("%w: nil action at index %d", ErrMalformedDefinition, i)
		}
		if _, dup := seen[a.name]; dup {
			return fmt.Errorf("%w: %s: %w", ErrMalformedDefinition, a.name, ErrDuplicateAction)
		}
		seen[a.name] = struct{}{}
		if a.performer == nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformedDefinition, a.name, ErrNoPerformer)
		}
	}
	return nil
}

func copyConditions(m map[string]condition.Determination) map[string]condition.Determination {
	out := make(map[string]condition.Determination, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
