package condition

import (
	"sort"
	"strconv"
	"strings"
)

// WorldState is an immutable mapping from condition name to determination.
// Conditions absent from the mapping are Unknown.
type WorldState struct {
	values map[string]Determination
}

// NewWorldState creates a world state from a copy of values.
func NewWorldState(values map[string]Determination) WorldState {
	copied := make(map[string]Determination, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return WorldState{values: copied}
}

// Get returns the determination for name.
func (w WorldState) Get(name string) Determination {
	return w.values[name]
}

// Len returns the number of conditions in the state.
func (w WorldState) Len() int {
	return len(w.values)
}

// Names returns the condition names in sorted order.
func (w WorldState) Names() []string {
	names := make([]string, 0, len(w.values))
	for k := range w.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the underlying mapping.
func (w WorldState) Map() map[string]Determination {
	out := make(map[string]Determination, len(w.values))
	for k, v := range w.values {
		out[k] = v
	}
	return out
}

// Satisfies reports whether every requirement matches this state exactly.
// Unknown never satisfies a True or False requirement.
func (w WorldState) Satisfies(requirements map[string]Determination) bool {
	for name, want := range requirements {
		if w.values[name] != want {
			return false
		}
	}
	return true
}

// Unsatisfied counts the requirements that do not match this state.
func (w WorldState) Unsatisfied(requirements map[string]Determination) int {
	n := 0
	for name, want := range requirements {
		if w.values[name] != want {
			n++
		}
	}
	return n
}

// Apply returns a new state with effects applied. The receiver is unchanged.
func (w WorldState) Apply(effects map[string]Determination) WorldState {
	next := make(map[string]Determination, len(w.values)+len(effects))
	for k, v := range w.values {
		next[k] = v
	}
	for k, v := range effects {
		next[k] = v
	}
	return WorldState{values: next}
}

// Equal reports whether both states hold the same determinations.
// A missing name and an explicit Unknown are equal.
func (w WorldState) Equal(other WorldState) bool {
	for k, v := range w.values {
		if other.values[k] != v {
			return false
		}
	}
	for k, v := range other.values {
		if w.values[k] != v {
			return false
		}
	}
	return true
}

// Key returns a canonical string for the state, suitable for deduplication.
// Unknown entries are omitted so that equal states share a key. Names are
// length-prefixed, so no name can forge another entry.
func (w WorldState) Key() string {
	var sb strings.Builder
	for _, name := range w.Names() {
		v := w.values[name]
		if v == Unknown {
			continue
		}
		sb.WriteString(strconv.Itoa(len(name)))
		sb.WriteByte(':')
		sb.WriteString(name)
		if v == True {
			sb.WriteString("=T;")
		} else {
			sb.WriteString("=F;")
		}
	}
	return sb.String()
}

// String renders the state for logs.
func (w WorldState) String() string {
	names := w.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+w.values[name].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
