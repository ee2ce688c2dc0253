package process

import "errors"

// Domain errors for processes and their persistence.
var (
	// ErrInvalidTransition indicates a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid process status transition")

	// ErrInvalidStatus indicates an unknown status name.
	ErrInvalidStatus = errors.New("invalid process status")

	// ErrNotRunning indicates an operation that requires a running process.
	ErrNotRunning = errors.New("process not running")

	// ErrProcessNotFound indicates the requested process was not found.
	ErrProcessNotFound = errors.New("process not found")

	// ErrProcessExists indicates a process with the same ID already exists.
	ErrProcessExists = errors.New("process already exists")

	// ErrInvalidProcessID indicates an empty or malformed process ID.
	ErrInvalidProcessID = errors.New("invalid process ID")

	// ErrConnectionFailed indicates the store backend is unreachable.
	ErrConnectionFailed = errors.New("process store connection failed")

	// ErrOperationTimeout indicates a store operation exceeded its deadline.
	ErrOperationTimeout = errors.New("process store operation timed out")
)
