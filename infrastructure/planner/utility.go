package planner

import (
	"context"

	"github.com/felixgeelhaar/goap/domain/action"
)

// Utility picks the single most valuable applicable action at each step
// instead of searching for a full path. An action is useful when its net
// value (value minus cost) is positive or it brings the goal closer.
// When no action is useful it returns no plan.
type Utility struct{}

// NewUtility creates a utility planner.
func NewUtility() *Utility {
	return &Utility{}
}

// PlanToGoal implements Planner.
func (u *Utility) PlanToGoal(_ context.Context, req Request) (*action.Plan, error) {
	if req.Goal == nil {
		return nil, ErrNoGoal
	}
	if req.Goal.SatisfiedBy(req.World) {
		return action.NewPlan(req.Goal, []*action.Action{}, 0), nil
	}

	cands, err := prepare(req.Actions, req.Blackboard)
	if err != nil {
		return nil, err
	}

	distance := req.Goal.Distance(req.World)
	var (
		best      *candidate
		bestScore float64
		bestGain  int
	)
	for _, c := range cands {
		if !c.act.ApplicableIn(req.World) {
			continue
		}
		next := req.World.Apply(c.effects)
		if next.Equal(req.World) {
			continue
		}
		score := c.act.Value() - c.cost
		gain := distance - req.Goal.Distance(next)
		if score <= 0 && gain <= 0 {
			continue
		}
		// Candidates arrive in (cost, -preconditions, name) order, so only a
		// strictly better score or gain replaces the current choice.
		if best == nil || score > bestScore || (score == bestScore && gain > bestGain) {
			best, bestScore, bestGain = c, score, gain
		}
	}
	if best == nil {
		return nil, nil
	}
	return action.NewPlan(req.Goal, []*action.Action{best.act}, best.cost), nil
}
