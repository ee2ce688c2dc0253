package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/goap/domain/process"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// ProcessID adds a process ID field.
func ProcessID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("process_id", id)
	}
}

// Goal adds a goal field.
func Goal(goal string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("goal", goal)
	}
}

// Status adds a process status field.
func Status(s process.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", string(s))
	}
}

// ActionName adds an action name field.
func ActionName(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("action", name)
	}
}

// Step adds the step number.
func Step(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("step", n)
	}
}

// Cost adds a cost field.
func Cost(c float64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Float64("cost", c)
	}
}

// Tokens adds a token count field.
func Tokens(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("tokens", n)
	}
}

// Plan adds the plan rendering and its length.
func Plan(rendered string, length int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("plan", rendered).Int("plan_length", length)
	}
}

// PlanLength adds a plan length field.
func PlanLength(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("plan_length", n)
	}
}

// PolicyName adds the name of an early-termination policy.
func PolicyName(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("policy", name)
	}
}

// WorldState adds a rendered world state.
func WorldState(ws string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("world_state", ws)
	}
}

// Progress adds whether an action made progress.
func Progress(made bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("progress", made)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Attempt adds a retry attempt number.
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("attempt", n)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
