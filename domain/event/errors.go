package event

import "errors"

// Domain errors for event operations.
var (
	// ErrInvalidEvent is returned when an event is malformed.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrPublisherClosed is returned when publishing after Close.
	ErrPublisherClosed = errors.New("event publisher closed")

	// ErrConnectionFailed is returned when a store backend is unreachable.
	ErrConnectionFailed = errors.New("event store connection failed")

	// ErrOperationTimeout is returned when a store operation exceeds its deadline.
	ErrOperationTimeout = errors.New("event store operation timed out")
)
