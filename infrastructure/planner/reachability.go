package planner

import (
	"github.com/felixgeelhaar/goap/domain/condition"
)

// relaxation is the result of a delete-free reachability analysis: a fact is
// achievable if it holds initially or some action whose preconditions are
// all achievable establishes it. The analysis is linear in the total size of
// the candidates' precondition and effect sets.
type relaxation struct {
	achievable map[fact]bool
	fired      []bool
}

func relax(start condition.WorldState, cands []*candidate, goal []fact) relaxation {
	achievable := make(map[fact]bool)
	seed := func(name string) {
		achievable[fact{name, start.Get(name)}] = true
	}
	for _, name := range start.Names() {
		seed(name)
	}
	for _, f := range goal {
		seed(f.name)
	}
	for _, c := range cands {
		for _, f := range c.pre {
			seed(f.name)
		}
		for name := range c.effects {
			seed(name)
		}
	}

	missing := make([]int, len(cands))
	waiting := make(map[fact][]int)
	queue := make([]int, 0, len(cands))
	for i, c := range cands {
		for _, f := range c.pre {
			if !achievable[f] {
				missing[i]++
				waiting[f] = append(waiting[f], i)
			}
		}
		if missing[i] == 0 {
			queue = append(queue, i)
		}
	}

	fired := make([]bool, len(cands))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if fired[i] {
			continue
		}
		fired[i] = true
		for name, v := range cands[i].effects {
			f := fact{name, v}
			if achievable[f] {
				continue
			}
			achievable[f] = true
			for _, j := range waiting[f] {
				missing[j]--
				if missing[j] == 0 {
					queue = append(queue, j)
				}
			}
		}
	}

	return relaxation{achievable: achievable, fired: fired}
}

// reaches reports whether every goal fact is achievable.
func (r relaxation) reaches(goal []fact) bool {
	for _, f := range goal {
		if !r.achievable[f] {
			return false
		}
	}
	return true
}

// relevant keeps the fired candidates that establish a goal fact, or a
// precondition of another kept candidate. Input order is preserved.
func (r relaxation) relevant(cands []*candidate, goal []fact) []*candidate {
	producers := make(map[fact][]int)
	for i, c := range cands {
		if !r.fired[i] {
			continue
		}
		for name, v := range c.effects {
			f := fact{name, v}
			producers[f] = append(producers[f], i)
		}
	}

	needed := make(map[fact]bool, len(goal))
	queue := make([]fact, 0, len(goal))
	for _, f := range goal {
		needed[f] = true
		queue = append(queue, f)
	}

	keep := make([]bool, len(cands))
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for _, i := range producers[f] {
			if keep[i] {
				continue
			}
			keep[i] = true
			for _, p := range cands[i].pre {
				if !needed[p] {
					needed[p] = true
					queue = append(queue, p)
				}
			}
		}
	}

	out := make([]*candidate, 0, len(cands))
	for i, c := range cands {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}
