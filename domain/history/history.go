// Package history records the actions a process has executed.
package history

import "time"

// Invocation is one executed action.
type Invocation struct {
	Action    string        `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
	Cost      float64       `json:"cost"`
	Tokens    int           `json:"tokens,omitempty"`
	Duration  time.Duration `json:"duration"`
	// Bindings lists the names the action bound, in order.
	Bindings []string `json:"bindings,omitempty"`
	// Progress is false when the step left the planning input unchanged.
	Progress bool `json:"progress"`
}

// History is the ordered list of invocations of one process.
type History []Invocation

// Len returns the number of invocations.
func (h History) Len() int {
	return len(h)
}

// TotalCost sums the declared cost of every invocation.
func (h History) TotalCost() float64 {
	var total float64
	for _, inv := range h {
		total += inv.Cost
	}
	return total
}

// TotalTokens sums the tokens of every invocation.
func (h History) TotalTokens() int {
	total := 0
	for _, inv := range h {
		total += inv.Tokens
	}
	return total
}

// Last returns the most recent invocation.
func (h History) Last() (Invocation, bool) {
	if len(h) == 0 {
		return Invocation{}, false
	}
	return h[len(h)-1], true
}

// NoProgressStreak counts trailing invocations that made no progress.
func (h History) NoProgressStreak() int {
	n := 0
	for i := len(h) - 1; i >= 0 && !h[i].Progress; i-- {
		n++
	}
	return n
}

// Count returns how many times the named action ran.
func (h History) Count(action string) int {
	n := 0
	for _, inv := range h {
		if inv.Action == action {
			n++
		}
	}
	return n
}

// Ran reports whether the named action ran at least once.
func (h History) Ran(action string) bool {
	return h.Count(action) > 0
}

// Names returns the action names in execution order.
func (h History) Names() []string {
	names := make([]string, len(h))
	for i, inv := range h {
		names[i] = inv.Action
	}
	return names
}

// Clone returns an independent copy.
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	for i, inv := range h {
		inv.Bindings = append([]string(nil), inv.Bindings...)
		out[i] = inv
	}
	return out
}
