package planner

import (
	"context"
	"sort"

	"github.com/felixgeelhaar/goap/domain/action"
)

// PlansToGoals plans toward every goal and returns the plans found, ordered
// by descending net value, then ascending cost, then goal name.
func PlansToGoals(ctx context.Context, p Planner, req Request, goals []*action.Goal) ([]*action.Plan, error) {
	plans := make([]*action.Plan, 0, len(goals))
	for _, g := range goals {
		r := req
		r.Goal = g
		plan, err := p.PlanToGoal(ctx, r)
		if err != nil {
			return nil, err
		}
		if plan != nil {
			plans = append(plans, plan)
		}
	}
	sort.SliceStable(plans, func(i, j int) bool {
		a, b := plans[i], plans[j]
		if a.NetValue() != b.NetValue() {
			return a.NetValue() > b.NetValue()
		}
		if a.Cost != b.Cost {
			return a.Cost < b.Cost
		}
		return a.Goal.Name() < b.Goal.Name()
	})
	return plans, nil
}

// BestValuePlanToAnyGoal returns the highest net value plan among goals,
// or nil when no goal is reachable.
func BestValuePlanToAnyGoal(ctx context.Context, p Planner, req Request, goals []*action.Goal) (*action.Plan, error) {
	plans, err := PlansToGoals(ctx, p, req, goals)
	if err != nil || len(plans) == 0 {
		return nil, err
	}
	return plans[0], nil
}
