package planner

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/goap/domain/action"
)

// Scripted returns a predefined sequence of plans, for deterministic tests
// of process behaviour. Once the script is exhausted it returns no plan.
type Scripted struct {
	mu    sync.Mutex
	plans []*action.Plan
	calls []Request
}

// NewScripted creates a scripted planner. A nil entry scripts "no plan".
func NewScripted(plans ...*action.Plan) *Scripted {
	return &Scripted{plans: plans}
}

// PlanToGoal implements Planner.
func (s *Scripted) PlanToGoal(_ context.Context, req Request) (*action.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.calls)
	s.calls = append(s.calls, req)
	if idx >= len(s.plans) {
		return nil, nil
	}
	return s.plans[idx], nil
}

// Calls returns the requests received so far.
func (s *Scripted) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}
