package action

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
)

// Builder provides a fluent API for constructing actions.
type Builder struct {
	act *Action
	err error
}

// NewBuilder creates a new action builder.
func NewBuilder(name string) *Builder {
	b := &Builder{
		act: &Action{
			name:          name,
			preconditions: make(map[string]condition.Determination),
			effects:       make(map[string]condition.Determination),
		},
	}
	if name == "" {
		b.err = ErrEmptyName
	}
	return b
}

// WithDescription sets the action description.
func (b *Builder) WithDescription(desc string) *Builder {
	if b.err != nil {
		return b
	}
	b.act.description = desc
	return b
}

// Requires adds a precondition.
func (b *Builder) Requires(name string, value condition.Determination) *Builder {
	if b.err != nil {
		return b
	}
	b.act.preconditions[name] = value
	return b
}

// WithPreconditions adds several preconditions.
func (b *Builder) WithPreconditions(pre map[string]condition.Determination) *Builder {
	for k, v := range pre {
		b.Requires(k, v)
	}
	return b
}

// Produces adds an effect.
func (b *Builder) Produces(name string, value condition.Determination) *Builder {
	if b.err != nil {
		return b
	}
	b.act.effects[name] = value
	return b
}

// WithEffects adds several effects.
func (b *Builder) WithEffects(effects map[string]condition.Determination) *Builder {
	for k, v := range effects {
		b.Produces(k, v)
	}
	return b
}

// WithCost sets a fixed cost.
func (b *Builder) WithCost(cost float64) *Builder {
	if b.err != nil {
		return b
	}
	b.act.staticCost = cost
	b.act.costFunc = nil
	return b
}

// WithCostFunc sets a cost computed from the blackboard at planning time.
func (b *Builder) WithCostFunc(fn CostFunc) *Builder {
	if b.err != nil {
		return b
	}
	b.act.costFunc = fn
	return b
}

// WithValue sets the action's value.
func (b *Builder) WithValue(value float64) *Builder {
	if b.err != nil {
		return b
	}
	b.act.value = value
	return b
}

// WithRerun allows the action to run more than once per process.
func (b *Builder) WithRerun(canRerun bool) *Builder {
	if b.err != nil {
		return b
	}
	b.act.canRerun = canRerun
	return b
}

// WithTimeout bounds each execution of the performer.
func (b *Builder) WithTimeout(d time.Duration) *Builder {
	if b.err != nil {
		return b
	}
	b.act.timeout = d
	return b
}

// WithRetry declares the action's own retry policy.
func (b *Builder) WithRetry(maxAttempts int, initialDelay time.Duration) *Builder {
	if b.err != nil {
		return b
	}
	b.act.retry = RetryPolicy{MaxAttempts: maxAttempts, InitialDelay: initialDelay}
	return b
}

// WithPerformer sets the side-effect callback.
func (b *Builder) WithPerformer(p Performer) *Builder {
	if b.err != nil {
		return b
	}
	b.act.performer = p
	return b
}

// WithBindingsFunc sets a performer that only produces bindings.
func (b *Builder) WithBindingsFunc(fn func(ctx context.Context, bb *blackboard.Blackboard) (blackboard.Bindings, error)) *Builder {
	return b.WithPerformer(func(ctx context.Context, bb *blackboard.Blackboard) (Result, error) {
		bindings, err := fn(ctx, bb)
		if err != nil {
			return Result{}, err
		}
		return Result{Bindings: bindings}, nil
	})
}

// Build validates and returns the action.
func (b *Builder) Build() (*Action, error) {
	if b.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDefinition, b.err)
	}
	if len(b.act.effects) == 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDefinition, b.act.name, ErrNoEffects)
	}
	if b.act.costFunc == nil && b.act.staticCost < 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDefinition, b.act.name, ErrNegativeCost)
	}
	if b.act.retry.MaxAttempts < 0 {
		b.act.retry.MaxAttempts = 0
	}

	act := *b.act
	act.preconditions = copyConditions(b.act.preconditions)
	act.effects = copyConditions(b.act.effects)
	return &act, nil
}

// MustBuild builds the action and panics on error.
func (b *Builder) MustBuild() *Action {
	a, err := b.Build()
	if err != nil {
		panic(err)
	}
	return a
}
