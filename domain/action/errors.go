package action

import "errors"

// Domain errors for action and goal definitions.
var (
	// ErrMalformedDefinition wraps every construction-time rejection.
	ErrMalformedDefinition = errors.New("malformed definition")

	// ErrEmptyName indicates an action or goal was created without a name.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNegativeCost indicates a cost below zero.
	ErrNegativeCost = errors.New("cost cannot be negative")

	// ErrNoEffects indicates an action declares no effects.
	ErrNoEffects = errors.New("action has no effects")

	// ErrNoPreconditions indicates a goal declares no preconditions.
	ErrNoPreconditions = errors.New("goal has no preconditions")

	// ErrNoPerformer indicates an action cannot be executed.
	ErrNoPerformer = errors.New("action has no performer")

	// ErrDuplicateAction indicates two actions share a name.
	ErrDuplicateAction = errors.New("duplicate action name")
)
