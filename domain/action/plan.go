package action

import "strings"

// Plan is an ordered, costed sequence of actions toward a goal.
// A plan with no actions means the goal already held when planning began.
type Plan struct {
	Goal    *Goal
	Actions []*Action
	Cost    float64
}

// NewPlan creates a plan.
func NewPlan(goal *Goal, actions []*Action, cost float64) *Plan {
	return &Plan{Goal: goal, Actions: actions, Cost: cost}
}

// Len returns the number of actions.
func (p *Plan) Len() int {
	return len(p.Actions)
}

// IsComplete reports whether the plan has no actions left to run.
func (p *Plan) IsComplete() bool {
	return len(p.Actions) == 0
}

// Head returns the first action, or nil for an empty plan.
func (p *Plan) Head() *Action {
	if len(p.Actions) == 0 {
		return nil
	}
	return p.Actions[0]
}

// Names returns the action names in order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		names[i] = a.Name()
	}
	return names
}

// NetValue is the goal value minus the plan cost.
func (p *Plan) NetValue() float64 {
	if p.Goal == nil {
		return -p.Cost
	}
	return p.Goal.Value() - p.Cost
}

// String renders the plan as "a -> b -> c".
func (p *Plan) String() string {
	if len(p.Actions) == 0 {
		return "<empty>"
	}
	return strings.Join(p.Names(), " -> ")
}
