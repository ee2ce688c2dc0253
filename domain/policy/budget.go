// Package policy provides budgets and the early-termination policies that
// bound a process run.
package policy

import (
	"fmt"

	"github.com/felixgeelhaar/goap/domain/history"
)

// Default budget ceilings. The cost ceiling is in the same units as action
// costs, so the default admits two actions of cost 1.0 plus any cheaper ones.
const (
	DefaultCostLimit   = 2.0
	DefaultActionLimit = 50
	DefaultTokenLimit  = 1_000_000
)

// Budget dimensions, reported on budget decisions.
const (
	DimensionCost    = "cost"
	DimensionActions = "actions"
	DimensionTokens  = "tokens"
)

// Budget holds the ceilings for one process run. A ceiling of zero or less
// leaves that dimension unlimited.
type Budget struct {
	Cost    float64 `json:"cost" yaml:"cost"`
	Actions int     `json:"actions" yaml:"actions"`
	Tokens  int     `json:"tokens" yaml:"tokens"`
}

// DefaultBudget returns the default ceilings.
func DefaultBudget() Budget {
	return Budget{
		Cost:    DefaultCostLimit,
		Actions: DefaultActionLimit,
		Tokens:  DefaultTokenLimit,
	}
}

// IsZero reports whether no ceiling is set.
func (b Budget) IsZero() bool {
	return b.Cost == 0 && b.Actions == 0 && b.Tokens == 0
}

// Validate rejects negative ceilings.
func (b Budget) Validate() error {
	if b.Cost < 0 || b.Actions < 0 || b.Tokens < 0 {
		return fmt.Errorf("%w: ceilings must not be negative: %+v", ErrInvalidBudget, b)
	}
	return nil
}

// Exhausted returns the dimensions whose ceiling u has used up. Cost must
// exceed its ceiling; actions and tokens only need to reach theirs.
func (b Budget) Exhausted(u Usage) []string {
	var dims []string
	if b.Cost > 0 && u.Cost > b.Cost {
		dims = append(dims, DimensionCost)
	}
	if b.Actions > 0 && u.Actions >= b.Actions {
		dims = append(dims, DimensionActions)
	}
	if b.Tokens > 0 && u.Tokens >= b.Tokens {
		dims = append(dims, DimensionTokens)
	}
	return dims
}

// EarlyTerminationPolicy returns the default composite policy for the budget:
// terminate on the first of cost, action count or token ceiling.
func (b Budget) EarlyTerminationPolicy() Policy {
	return FirstOf(
		MaxCost(b.Cost),
		MaxActions(b.Actions),
		MaxTokens(b.Tokens),
	)
}

// Usage holds cumulative consumption. Every field only grows.
type Usage struct {
	Cost    float64 `json:"cost"`
	Actions int     `json:"actions"`
	Tokens  int     `json:"tokens"`
}

// Add returns the usage after one more action.
func (u Usage) Add(cost float64, tokens int) Usage {
	return Usage{
		Cost:    u.Cost + cost,
		Actions: u.Actions + 1,
		Tokens:  u.Tokens + tokens,
	}
}

// UsageOf derives usage from an execution history.
func UsageOf(h history.History) Usage {
	return Usage{
		Cost:    h.TotalCost(),
		Actions: h.Len(),
		Tokens:  h.TotalTokens(),
	}
}
