package middleware

import "errors"

var (
	// ErrActionTimeout indicates an action exceeded its execution timeout.
	// It is distinguishable from every other execution failure.
	ErrActionTimeout = errors.New("action execution timed out")

	// ErrCircuitOpen indicates the action was rejected by an open circuit breaker.
	ErrCircuitOpen = errors.New("action circuit open")
)
