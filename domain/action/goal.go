package action

import (
	"fmt"

	"github.com/felixgeelhaar/goap/domain/condition"
)

// Goal is a named set of condition requirements.
type Goal struct {
	name          string
	description   string
	preconditions map[string]condition.Determination
	value         float64
}

// Name returns the goal name.
func (g *Goal) Name() string {
	return g.name
}

// Description returns the goal description.
func (g *Goal) Description() string {
	return g.description
}

// Preconditions returns a copy of the required condition values.
func (g *Goal) Preconditions() map[string]condition.Determination {
	return copyConditions(g.preconditions)
}

// Value returns how much achieving the goal is worth.
func (g *Goal) Value() float64 {
	return g.value
}

// SatisfiedBy reports whether ws meets every goal precondition.
func (g *Goal) SatisfiedBy(ws condition.WorldState) bool {
	return ws.Satisfies(g.preconditions)
}

// Distance counts the goal preconditions ws does not meet.
func (g *Goal) Distance(ws condition.WorldState) int {
	return ws.Unsatisfied(g.preconditions)
}

// String returns the goal name.
func (g *Goal) String() string {
	return g.name
}

// GoalBuilder provides a fluent API for constructing goals.
type GoalBuilder struct {
	goal *Goal
	err  error
}

// NewGoal creates a new goal builder.
func NewGoal(name string) *GoalBuilder {
	b := &GoalBuilder{
		goal: &Goal{
			name:          name,
			preconditions: make(map[string]condition.Determination),
		},
	}
	if name == "" {
		b.err = ErrEmptyName
	}
	return b
}

// WithDescription sets the goal description.
func (b *GoalBuilder) WithDescription(desc string) *GoalBuilder {
	if b.err == nil {
		b.goal.description = desc
	}
	return b
}

// Requires adds a precondition.
func (b *GoalBuilder) Requires(name string, value condition.Determination) *GoalBuilder {
	if b.err == nil {
		b.goal.preconditions[name] = value
	}
	return b
}

// WithPreconditions adds several preconditions.
func (b *GoalBuilder) WithPreconditions(pre map[string]condition.Determination) *GoalBuilder {
	for k, v := range pre {
		b.Requires(k, v)
	}
	return b
}

// WithValue sets the goal value.
func (b *GoalBuilder) WithValue(value float64) *GoalBuilder {
	if b.err == nil {
		b.goal.value = value
	}
	return b
}

// Build validates and returns the goal.
func (b *GoalBuilder) Build() (*Goal, error) {
	if b.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDefinition, b.err)
	}
	if len(b.goal.preconditions) == 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDefinition, b.goal.name, ErrNoPreconditions)
	}
	g := *b.goal
	g.preconditions = copyConditions(b.goal.preconditions)
	return &g, nil
}

// MustBuild builds the goal and panics on error.
func (b *GoalBuilder) MustBuild() *Goal {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
