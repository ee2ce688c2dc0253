package planner

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
)

type fact struct {
	name  string
	value condition.Determination
}

// candidate is an action snapshotted for one planning call: its cost is
// evaluated once and its condition maps are copied once.
type candidate struct {
	act     *action.Action
	index   int
	cost    float64
	pre     []fact
	effects map[string]condition.Determination
}

func factsOf(m map[string]condition.Determination) []fact {
	out := make([]fact, 0, len(m))
	for name, v := range m {
		out = append(out, fact{name, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// prepare evaluates costs and orders candidates by
// (cost, -preconditionCount, name, input index), which makes every later
// choice independent of the input order.
func prepare(actions []*action.Action, bb *blackboard.Blackboard) ([]*candidate, error) {
	cands := make([]*candidate, 0, len(actions))
	for i, a := range actions {
		if a == nil {
			continue
		}
		effects := a.Effects()
		if len(effects) == 0 {
			continue
		}
		cost := a.Cost(bb)
		if cost < 0 {
			return nil, fmt.Errorf("%w: %s: %w (%.4g)", action.ErrMalformedDefinition, a.Name(), action.ErrNegativeCost, cost)
		}
		cands = append(cands, &candidate{
			act:     a,
			index:   i,
			cost:    cost,
			pre:     factsOf(a.Preconditions()),
			effects: effects,
		})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].before(cands[j])
	})
	return cands, nil
}

func (c *candidate) before(o *candidate) bool {
	if c.cost != o.cost {
		return c.cost < o.cost
	}
	if len(c.pre) != len(o.pre) {
		return len(c.pre) > len(o.pre)
	}
	if c.act.Name() != o.act.Name() {
		return c.act.Name() < o.act.Name()
	}
	return c.index < o.index
}
