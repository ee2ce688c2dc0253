// Package blackboard provides the process-scoped store of named, typed values
// that actions read from and write to.
package blackboard

import (
	"reflect"
	"sort"
	"sync"
	"time"
)

// SourceInput marks entries bound from the initial process input.
const SourceInput = "input"

// Binding is a single named value.
type Binding struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Bind creates a binding.
func Bind(name string, value any) Binding {
	return Binding{Name: name, Value: value}
}

// Bindings is an ordered list of bindings produced by an action.
type Bindings []Binding

// Names returns the binding names in order.
func (b Bindings) Names() []string {
	names := make([]string, len(b))
	for i, binding := range b {
		names[i] = binding.Name
	}
	return names
}

// FromMap converts a map into bindings ordered by name.
func FromMap(values map[string]any) Bindings {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Bindings, 0, len(names))
	for _, name := range names {
		out = append(out, Bind(name, values[name]))
	}
	return out
}

// Entry records one binding as it was added to the blackboard.
type Entry struct {
	Seq       int       `json:"seq"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Value     any       `json:"value"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Blackboard is a named-object store owned by a single process.
// Names may be overwritten; the entry log keeps every binding in order.
type Blackboard struct {
	mu         sync.RWMutex
	values     map[string]any
	entries    []Entry
	conditions map[string]bool
}

// New creates an empty blackboard.
func New() *Blackboard {
	return &Blackboard{
		values:     make(map[string]any),
		conditions: make(map[string]bool),
	}
}

// NewWith creates a blackboard seeded with input bindings.
func NewWith(bindings Bindings) *Blackboard {
	bb := New()
	bb.Merge(SourceInput, bindings)
	return bb
}

// Set binds a single value from the process input.
func (b *Blackboard) Set(name string, value any) {
	b.Merge(SourceInput, Bindings{Bind(name, value)})
}

// Merge adds bindings produced by source and returns how many of them were
// new names or replaced a different value.
func (b *Blackboard) Merge(source string, bindings Bindings) int {
	if len(bindings) == 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	changed := 0
	for _, binding := range bindings {
		if binding.Name == "" {
			continue
		}
		prev, exists := b.values[binding.Name]
		if !exists || !reflect.DeepEqual(prev, binding.Value) {
			changed++
		}
		b.values[binding.Name] = binding.Value
		b.entries = append(b.entries, Entry{
			Seq:       len(b.entries) + 1,
			Name:      binding.Name,
			Type:      TypeName(binding.Value),
			Value:     binding.Value,
			Source:    source,
			Timestamp: now,
		})
	}
	return changed
}

// Lookup returns the current value bound to name.
func (b *Blackboard) Lookup(name string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (b *Blackboard) Has(name string) bool {
	_, ok := b.Lookup(name)
	return ok
}

// Names returns the bound names in sorted order.
func (b *Blackboard) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.values))
	for name := range b.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of the current name to value mapping.
func (b *Blackboard) Values() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Entries returns every binding ever added, in insertion order.
func (b *Blackboard) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// EntriesFrom returns the entries added by source, in insertion order.
func (b *Blackboard) EntriesFrom(source string) []Entry {
	var out []Entry
	for _, e := range b.Entries() {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of bound names.
func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// SetCondition records an explicit truth value for a named condition.
// Explicit conditions take precedence over anything inferred from bindings.
func (b *Blackboard) SetCondition(name string, value bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conditions[name] = value
}

// Condition returns an explicit condition value, if one was set.
func (b *Blackboard) Condition(name string) (bool, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.conditions[name]
	return v, ok
}

// Conditions returns a copy of the explicit conditions.
func (b *Blackboard) Conditions() map[string]bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]bool, len(b.conditions))
	for k, v := range b.conditions {
		out[k] = v
	}
	return out
}

// Last returns the most recently bound value of type T.
func Last[T any](b *Blackboard) (T, bool) {
	var zero T
	entries := b.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		if v, ok := entries[i].Value.(T); ok {
			return v, true
		}
	}
	return zero, false
}

// Get returns the value bound to name if it has type T.
func Get[T any](b *Blackboard, name string) (T, bool) {
	var zero T
	v, ok := b.Lookup(name)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// TypeName returns the unqualified type name of v, as used by typed
// condition names such as "report:Report".
func TypeName(v any) string {
	if v == nil {
		return "nil"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
