package planner

import "errors"

var (
	// ErrNoGoal indicates a planning request without a goal.
	ErrNoGoal = errors.New("planning request has no goal")

	// ErrSearchLimit indicates the search expanded more nodes than allowed.
	ErrSearchLimit = errors.New("planner search limit exceeded")

	// ErrUnknownPlanner indicates an unrecognised planner type.
	ErrUnknownPlanner = errors.New("unknown planner type")
)
