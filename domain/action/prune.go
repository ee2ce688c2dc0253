package action

import "github.com/felixgeelhaar/goap/domain/condition"

type fact struct {
	name  string
	value condition.Determination
}

// Prune keeps only actions that can contribute to the goal, directly or by
// establishing a precondition of another contributing action. The relative
// order of kept actions is preserved.
func Prune(actions []*Action, goal *Goal) []*Action {
	needed := make(map[fact]struct{}, len(goal.preconditions))
	for name, v := range goal.preconditions {
		needed[fact{name, v}] = struct{}{}
	}

	kept := make([]bool, len(actions))
	for changed := true; changed; {
		changed = false
		for i, a := range actions {
			if kept[i] || !a.contributesTo(needed) {
				continue
			}
			kept[i] = true
			changed = true
			for name, v := range a.preconditions {
				needed[fact{name, v}] = struct{}{}
			}
		}
	}

	out := make([]*Action, 0, len(actions))
	for i, a := range actions {
		if kept[i] {
			out = append(out, a)
		}
	}
	return out
}

func (a *Action) contributesTo(needed map[fact]struct{}) bool {
	for name, v := range a.effects {
		if _, ok := needed[fact{name, v}]; ok {
			return true
		}
	}
	return false
}
