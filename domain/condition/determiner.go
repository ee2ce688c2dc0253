package condition

import (
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/goap/domain/blackboard"
)

// Determiner decides a named condition from blackboard contents.
// Implementations must be pure functions of the blackboard and must return
// Unknown rather than guess.
type Determiner interface {
	Determine(name string, bb *blackboard.Blackboard) Determination
}

// DeterminerFunc adapts a function to the Determiner interface.
type DeterminerFunc func(name string, bb *blackboard.Blackboard) Determination

// Determine implements Determiner.
func (f DeterminerFunc) Determine(name string, bb *blackboard.Blackboard) Determination {
	return f(name, bb)
}

// Static is a fixed name to determination map. Missing names are Unknown.
type Static map[string]Determination

// Determine implements Determiner.
func (s Static) Determine(name string, _ *blackboard.Blackboard) Determination {
	return s[name]
}

// Evaluator computes a single condition from the blackboard.
type Evaluator func(bb *blackboard.Blackboard) Determination

// BlackboardDeterminer infers conditions from blackboard contents.
//
// Resolution order for a name:
//  1. an explicit condition set on the blackboard
//  2. a registered evaluator for the name
//  3. "binding:Type" names: True when binding is bound to a value of Type, else False
//  4. a bound name: its value when boolean, otherwise True
//  5. Unknown
type BlackboardDeterminer struct {
	mu         sync.RWMutex
	evaluators map[string]Evaluator
}

// NewBlackboardDeterminer creates the default determiner.
func NewBlackboardDeterminer() *BlackboardDeterminer {
	return &BlackboardDeterminer{evaluators: make(map[string]Evaluator)}
}

// Register adds an evaluator for a condition name, replacing any existing one.
func (d *BlackboardDeterminer) Register(name string, eval Evaluator) *BlackboardDeterminer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evaluators[name] = eval
	return d
}

// Determine implements Determiner.
func (d *BlackboardDeterminer) Determine(name string, bb *blackboard.Blackboard) Determination {
	if bb == nil {
		return Unknown
	}
	if v, ok := bb.Condition(name); ok {
		return FromBool(v)
	}

	d.mu.RLock()
	eval, ok := d.evaluators[name]
	d.mu.RUnlock()
	if ok {
		return eval(bb)
	}

	if binding, typeName, typed := strings.Cut(name, ":"); typed && binding != "" && typeName != "" {
		v, bound := bb.Lookup(binding)
		return FromBool(bound && blackboard.TypeName(v) == typeName)
	}

	if v, ok := bb.Lookup(name); ok {
		if b, isBool := v.(bool); isBool {
			return FromBool(b)
		}
		return True
	}
	return Unknown
}

// Derive builds a world state by determining every named condition.
func Derive(d Determiner, bb *blackboard.Blackboard, names []string) WorldState {
	values := make(map[string]Determination, len(names))
	for _, name := range names {
		if _, done := values[name]; done {
			continue
		}
		values[name] = d.Determine(name, bb)
	}
	return WorldState{values: values}
}

// SortedNames returns the unique names of the given requirement maps.
func SortedNames(maps ...map[string]Determination) []string {
	seen := make(map[string]struct{})
	for _, m := range maps {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
