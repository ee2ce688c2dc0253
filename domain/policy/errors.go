package policy

import "errors"

// Domain errors for budgets and early termination.
var (
	// ErrBudgetExceeded indicates a budget ceiling was reached.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrTerminatedEarly indicates a non-budget policy halted the process.
	ErrTerminatedEarly = errors.New("terminated early by policy")

	// ErrInvalidBudget indicates a budget with negative ceilings.
	ErrInvalidBudget = errors.New("invalid budget")

	// ErrUnknownPolicy indicates a policy name that cannot be resolved.
	ErrUnknownPolicy = errors.New("unknown policy")
)
