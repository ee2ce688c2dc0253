package planner

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/condition"
)

// DefaultMaxExpansions bounds the number of nodes one search may expand.
const DefaultMaxExpansions = 100_000

// AStar plans with A* over world states. Nodes are ordered by f = g + h,
// where g is the accumulated action cost and h the number of goal
// preconditions the state does not yet meet. The returned plan is the
// cheapest one reachable; among equal-cost plans the first in frontier
// order wins.
type AStar struct {
	maxExpansions int
}

// AStarOption configures an AStar planner.
type AStarOption func(*AStar)

// WithMaxExpansions sets the node expansion ceiling.
func WithMaxExpansions(n int) AStarOption {
	return func(p *AStar) {
		if n > 0 {
			p.maxExpansions = n
		}
	}
}

// NewAStar creates an A* planner.
func NewAStar(opts ...AStarOption) *AStar {
	p := &AStar{maxExpansions: DefaultMaxExpansions}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlanToGoal implements Planner.
func (p *AStar) PlanToGoal(ctx context.Context, req Request) (*action.Plan, error) {
	if req.Goal == nil {
		return nil, ErrNoGoal
	}

	cands, err := prepare(req.Actions, req.Blackboard)
	if err != nil {
		return nil, err
	}
	goal := factsOf(req.Goal.Preconditions())

	r := relax(req.World, cands, goal)
	if !r.reaches(goal) {
		return nil, nil
	}
	if req.Goal.SatisfiedBy(req.World) {
		return action.NewPlan(req.Goal, []*action.Action{}, 0), nil
	}

	return p.search(ctx, req.World, r.relevant(cands, goal), req.Goal)
}

type node struct {
	state  condition.WorldState
	key    string
	g      float64
	h      int
	parent *node
	via    *candidate
	seq    uint64
	index  int
}

func (n *node) f() float64 {
	return n.g + float64(n.h)
}

// frontier orders nodes by f, then by fewer unmet goal preconditions, then
// by insertion sequence. Successors are inserted in candidate order, so
// equal-cost ties resolve toward candidates with more preconditions.
type frontier []*node

func (h frontier) Len() int { return len(h) }

func (h frontier) Less(i, j int) bool {
	fi, fj := h[i].f(), h[j].f()
	if fi != fj {
		return fi < fj
	}
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].seq < h[j].seq
}

func (h frontier) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *frontier) Push(x any) {
	n := x.(*node)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *frontier) Pop() any {
	old := *h
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	n.index = -1
	*h = old[:last]
	return n
}

func (p *AStar) search(ctx context.Context, start condition.WorldState, cands []*candidate, goal *action.Goal) (*action.Plan, error) {
	var seq uint64
	root := &node{state: start, key: start.Key(), h: goal.Distance(start)}

	open := &frontier{}
	heap.Push(open, root)
	best := map[string]float64{root.key: 0}

	// h is not admissible, so the first goal node popped may not be the
	// cheapest. The search continues until no open node can undercut found.
	var found *node

	expansions := 0
	for open.Len() > 0 {
		n := heap.Pop(open).(*node)
		if n.g > best[n.key] {
			continue
		}
		if found != nil && n.g >= found.g {
			continue
		}
		if n.h == 0 {
			found = n
			continue
		}

		expansions++
		if expansions > p.maxExpansions {
			return nil, fmt.Errorf("%w: %d expansions", ErrSearchLimit, p.maxExpansions)
		}
		if expansions%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		for _, c := range cands {
			if !c.act.ApplicableIn(n.state) {
				continue
			}
			next := n.state.Apply(c.effects)
			key := next.Key()
			if key == n.key {
				continue
			}
			g := n.g + c.cost
			if found != nil && g >= found.g {
				continue
			}
			if old, seen := best[key]; seen && g >= old {
				continue
			}
			best[key] = g
			seq++
			heap.Push(open, &node{
				state:  next,
				key:    key,
				g:      g,
				h:      goal.Distance(next),
				parent: n,
				via:    c,
				seq:    seq,
			})
		}
	}
	if found == nil {
		return nil, nil
	}
	return planFrom(goal, found), nil
}

func planFrom(goal *action.Goal, n *node) *action.Plan {
	var steps []*action.Action
	for cur := n; cur.via != nil; cur = cur.parent {
		steps = append(steps, cur.via.act)
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	if steps == nil {
		steps = []*action.Action{}
	}
	return action.NewPlan(goal, steps, n.g)
}
