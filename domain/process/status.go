package process

// Status is the lifecycle status of a process.
type Status string

const (
	StatusCreated         Status = "CREATED"
	StatusRunning         Status = "RUNNING"
	StatusCompleted       Status = "COMPLETED"
	StatusStuck           Status = "STUCK"
	StatusFailed          Status = "FAILED"
	StatusTerminatedEarly Status = "TERMINATED_EARLY"
)

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusCreated,
		StatusRunning,
		StatusCompleted,
		StatusStuck,
		StatusFailed,
		StatusTerminatedEarly,
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusStuck, StatusFailed, StatusTerminatedEarly:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, known := range AllStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusCreated:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusRunning || next.IsTerminal()
	default:
		return false
	}
}

// String returns the status name.
func (s Status) String() string {
	return string(s)
}
