package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/goap/domain/history"
)

// Policy names.
const (
	NameMaxCost     = "max_cost"
	NameMaxActions  = "max_actions"
	NameMaxTokens   = "max_tokens"
	NameMaxDuration = "max_duration"
	NameNoProgress  = "no_progress"
	NameFirstOf     = "first_of"
	NameAllOf       = "all_of"
	NameNever       = "never"
)

// Snapshot is the read-only view of a process that policies evaluate.
type Snapshot struct {
	ProcessID string
	Goal      string
	History   history.History
	Usage     Usage
	Budget    Budget
	Elapsed   time.Duration
}

// Decision is the outcome of evaluating a policy.
type Decision struct {
	Terminate bool   `json:"terminate"`
	Policy    string `json:"policy,omitempty"`
	Reason    string `json:"reason,omitempty"`
	// Dimension is set when a budget ceiling fired.
	Dimension string `json:"dimension,omitempty"`
}

// Continue is the decision to keep running.
func Continue() Decision {
	return Decision{}
}

// Stop is the decision to terminate.
func Stop(policy, reason string) Decision {
	return Decision{Terminate: true, Policy: policy, Reason: reason}
}

// Err converts a terminating decision into an error wrapping
// ErrBudgetExceeded or ErrTerminatedEarly. It returns nil otherwise.
func (d Decision) Err() error {
	if !d.Terminate {
		return nil
	}
	if d.Dimension != "" {
		return fmt.Errorf("%w: %s: %s", ErrBudgetExceeded, d.Dimension, d.Reason)
	}
	return fmt.Errorf("%w: %s: %s", ErrTerminatedEarly, d.Policy, d.Reason)
}

// Policy decides whether a process should stop. Implementations must be
// pure: they may only read the snapshot.
type Policy interface {
	Name() string
	Evaluate(s Snapshot) Decision
}

type funcPolicy struct {
	name string
	fn   func(Snapshot) (bool, string)
}

func (p funcPolicy) Name() string { return p.name }

func (p funcPolicy) Evaluate(s Snapshot) Decision {
	if stop, reason := p.fn(s); stop {
		return Stop(p.name, reason)
	}
	return Continue()
}

// Func creates a named policy from a predicate returning (terminate, reason).
func Func(name string, fn func(Snapshot) (bool, string)) Policy {
	return funcPolicy{name: name, fn: fn}
}

type budgetPolicy struct {
	name      string
	dimension string
	limited   bool
	reached   func(Snapshot) (bool, string)
}

func (p budgetPolicy) Name() string { return p.name }

func (p budgetPolicy) Evaluate(s Snapshot) Decision {
	if !p.limited {
		return Continue()
	}
	if stop, reason := p.reached(s); stop {
		d := Stop(p.name, reason)
		d.Dimension = p.dimension
		return d
	}
	return Continue()
}

// MaxCost fires once cumulative cost exceeds limit. Spending exactly the
// limit stays within budget.
func MaxCost(limit float64) Policy {
	return budgetPolicy{
		name:      NameMaxCost,
		dimension: DimensionCost,
		limited:   limit > 0,
		reached: func(s Snapshot) (bool, string) {
			return s.Usage.Cost > limit, fmt.Sprintf("cost %.4g exceeded ceiling %.4g", s.Usage.Cost, limit)
		},
	}
}

// MaxActions fires once the number of executed actions reaches limit.
func MaxActions(limit int) Policy {
	return budgetPolicy{
		name:      NameMaxActions,
		dimension: DimensionActions,
		limited:   limit > 0,
		reached: func(s Snapshot) (bool, string) {
			return s.Usage.Actions >= limit, fmt.Sprintf("%d actions reached ceiling %d", s.Usage.Actions, limit)
		},
	}
}

// MaxTokens fires once cumulative tokens reach limit.
func MaxTokens(limit int) Policy {
	return budgetPolicy{
		name:      NameMaxTokens,
		dimension: DimensionTokens,
		limited:   limit > 0,
		reached: func(s Snapshot) (bool, string) {
			return s.Usage.Tokens >= limit, fmt.Sprintf("%d tokens reached ceiling %d", s.Usage.Tokens, limit)
		},
	}
}

// MaxDuration fires once the process has run for at least d.
func MaxDuration(d time.Duration) Policy {
	if d <= 0 {
		return Never()
	}
	return Func(NameMaxDuration, func(s Snapshot) (bool, string) {
		return s.Elapsed >= d, fmt.Sprintf("elapsed %s reached limit %s", s.Elapsed.Round(time.Millisecond), d)
	})
}

// NoProgress fires once limit consecutive steps made no progress.
func NoProgress(limit int) Policy {
	if limit <= 0 {
		return Never()
	}
	return Func(NameNoProgress, func(s Snapshot) (bool, string) {
		streak := s.History.NoProgressStreak()
		if streak < limit {
			return false, ""
		}
		last, _ := s.History.Last()
		return true, fmt.Sprintf("%d step(s) without progress, last action %s", streak, last.Action)
	})
}

// Never is a policy that never fires.
func Never() Policy {
	return Func(NameNever, func(Snapshot) (bool, string) { return false, "" })
}

type firstOf struct {
	policies []Policy
}

// FirstOf terminates as soon as any sub-policy fires, reporting that
// sub-policy's decision. Sub-policies are consulted in order.
func FirstOf(policies ...Policy) Policy {
	return firstOf{policies: compact(policies)}
}

func (f firstOf) Name() string { return NameFirstOf }

func (f firstOf) Evaluate(s Snapshot) Decision {
	for _, p := range f.policies {
		if d := p.Evaluate(s); d.Terminate {
			return d
		}
	}
	return Continue()
}

type allOf struct {
	policies []Policy
}

// AllOf terminates only when every sub-policy fires.
func AllOf(policies ...Policy) Policy {
	return allOf{policies: compact(policies)}
}

func (a allOf) Name() string { return NameAllOf }

func (a allOf) Evaluate(s Snapshot) Decision {
	if len(a.policies) == 0 {
		return Continue()
	}
	names := make([]string, 0, len(a.policies))
	reasons := make([]string, 0, len(a.policies))
	for _, p := range a.policies {
		d := p.Evaluate(s)
		if !d.Terminate {
			return Continue()
		}
		names = append(names, d.Policy)
		reasons = append(reasons, d.Reason)
	}
	return Stop(strings.Join(names, "+"), strings.Join(reasons, "; "))
}

type named struct {
	name  string
	inner Policy
}

// Named reports inner's decisions under a different name.
func Named(name string, inner Policy) Policy {
	return named{name: name, inner: inner}
}

func (n named) Name() string { return n.name }

func (n named) Evaluate(s Snapshot) Decision {
	d := n.inner.Evaluate(s)
	if d.Terminate {
		d.Policy = n.name
	}
	return d
}

func compact(policies []Policy) []Policy {
	out := make([]Policy, 0, len(policies))
	for _, p := range policies {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
