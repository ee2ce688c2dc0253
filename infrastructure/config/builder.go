package config

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
	domainconfig "github.com/felixgeelhaar/goap/domain/config"
	"github.com/felixgeelhaar/goap/domain/policy"
	"github.com/felixgeelhaar/goap/infrastructure/middleware"
	"github.com/felixgeelhaar/goap/infrastructure/planner"
	"github.com/felixgeelhaar/goap/infrastructure/resilience"
)

// DefaultMaxSteps bounds a process when the document sets no max_steps.
const DefaultMaxSteps = 100

// Builder builds runnable components from configuration.
type Builder struct {
	config *domainconfig.Config
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.Config) *Builder {
	return &Builder{config: config}
}

// BuildResult contains the built components from configuration.
type BuildResult struct {
	// Actions are the declared actions, in document order.
	Actions []*action.Action
	// Goals maps goal names to goals.
	Goals map[string]*action.Goal
	// DefaultGoal is the goal named by process.goal, or the only declared goal.
	DefaultGoal *action.Goal
	// Budget holds the ceilings after applying overrides to the defaults.
	Budget policy.Budget
	// Policies are the extra early-termination policies.
	Policies []policy.Policy
	// Planner is the configured planner.
	Planner planner.Planner
	// PlannerType is the configured planner name.
	PlannerType string
	// MaxSteps is the maximum execution steps.
	MaxSteps int
	// Prune removes irrelevant actions before planning.
	Prune bool
	// Delay pauses before each action.
	Delay time.Duration
	// ActionTimeout bounds actions that declare no timeout.
	ActionTimeout time.Duration
	// ShowPlanning logs every computed plan.
	ShowPlanning bool
	// Executor is the resilient executor, nil when resilience is disabled.
	Executor *resilience.Executor

	bindings   blackboard.Bindings
	conditions map[string]bool
}

// Build builds the components from configuration.
func (b *Builder) Build() (*BuildResult, error) {
	result := &BuildResult{
		Goals:         make(map[string]*action.Goal),
		PlannerType:   b.config.Process.Planner,
		MaxSteps:      b.config.Process.MaxSteps,
		Prune:         b.config.Process.Prune,
		Delay:         middleware.DelayFor(b.config.Process.OperationDelay),
		ActionTimeout: b.config.Process.ActionTimeout.Duration(),
		ShowPlanning:  b.config.Process.ShowPlanning,
		bindings:      blackboard.FromMap(b.config.Domain.Bindings),
		conditions:    b.config.Domain.Conditions,
	}
	if result.MaxSteps <= 0 {
		result.MaxSteps = DefaultMaxSteps
	}

	if err := b.buildActions(result); err != nil {
		return nil, fmt.Errorf("%w: building actions: %w", domainconfig.ErrBuildFailed, err)
	}
	if err := b.buildGoals(result); err != nil {
		return nil, fmt.Errorf("%w: building goals: %w", domainconfig.ErrBuildFailed, err)
	}
	if err := b.buildPolicy(result); err != nil {
		return nil, fmt.Errorf("%w: building policy: %w", domainconfig.ErrBuildFailed, err)
	}

	p, err := planner.New(b.config.Process.Planner)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainconfig.ErrBuildFailed, err)
	}
	result.Planner = p

	b.buildResilience(result)
	return result, nil
}

func (b *Builder) buildActions(result *BuildResult) error {
	for _, ac := range b.config.Domain.Actions {
		a, err := action.NewBuilder(ac.Name).
			WithDescription(ac.Description).
			WithPreconditions(domainconfig.Conditions(ac.Preconditions)).
			WithEffects(domainconfig.Conditions(ac.Effects)).
			WithCost(ac.Cost).
			WithValue(ac.Value).
			WithRerun(ac.CanRerun).
			WithTimeout(ac.Timeout.Duration()).
			WithRetry(ac.Retry.MaxAttempts, ac.Retry.InitialDelay.Duration()).
			WithPerformer(declaredPerformer(ac)).
			Build()
		if err != nil {
			return err
		}
		result.Actions = append(result.Actions, a)
	}
	return action.ValidateSet(result.Actions)
}

// declaredPerformer binds each known effect to its boolean value, then the
// action's declared values, and reports its declared tokens. It fails
// instead when the action declares a failure.
func declaredPerformer(ac domainconfig.ActionConfig) action.Performer {
	effects := make([]string, 0, len(ac.Effects))
	for name, v := range ac.Effects {
		if v.Determination().IsKnown() {
			effects = append(effects, name)
		}
	}
	sort.Strings(effects)

	bindings := make(blackboard.Bindings, 0, len(effects)+len(ac.Bindings))
	for _, name := range effects {
		bindings = append(bindings, blackboard.Bind(name, ac.Effects[name].Determination() == condition.True))
	}
	bindings = append(bindings, blackboard.FromMap(ac.Bindings)...)

	tokens := ac.Tokens
	fail := ac.Fail
	name := ac.Name
	return func(ctx context.Context, _ *blackboard.Blackboard) (action.Result, error) {
		if err := ctx.Err(); err != nil {
			return action.Result{}, err
		}
		if fail != "" {
			return action.Result{}, fmt.Errorf("%w: %s: %s", domainconfig.ErrDeclaredFailure, name, fail)
		}
		out := make(blackboard.Bindings, len(bindings))
		copy(out, bindings)
		return action.Result{Bindings: out, Tokens: tokens}, nil
	}
}

func (b *Builder) buildGoals(result *BuildResult) error {
	for _, gc := range b.config.Domain.Goals {
		g, err := action.NewGoal(gc.Name).
			WithDescription(gc.Description).
			WithPreconditions(domainconfig.Conditions(gc.Preconditions)).
			WithValue(gc.Value).
			Build()
		if err != nil {
			return err
		}
		result.Goals[g.Name()] = g
	}

	switch name := b.config.Process.Goal; {
	case name != "":
		g, ok := result.Goals[name]
		if !ok && len(result.Goals) > 0 {
			return fmt.Errorf("%w: %s", domainconfig.ErrUnknownGoal, name)
		}
		result.DefaultGoal = g
	case len(result.Goals) == 1:
		for _, g := range result.Goals {
			result.DefaultGoal = g
		}
	}
	return nil
}

func (b *Builder) buildPolicy(result *BuildResult) error {
	budget := policy.DefaultBudget()
	if c := b.config.Budget.Cost; c != nil {
		budget.Cost = *c
	}
	if a := b.config.Budget.Actions; a != nil {
		budget.Actions = *a
	}
	if t := b.config.Budget.Tokens; t != nil {
		budget.Tokens = *t
	}
	if err := budget.Validate(); err != nil {
		return err
	}
	result.Budget = budget

	for _, pc := range b.config.Policies {
		p, err := policy.FromSpec(policy.Spec{
			Name:     pc.Name,
			Limit:    pc.Limit,
			Duration: pc.Duration.Duration(),
		})
		if err != nil {
			return err
		}
		result.Policies = append(result.Policies, p)
	}
	return nil
}

func (b *Builder) buildResilience(result *BuildResult) {
	r := b.config.Resilience
	if !r.Enabled {
		return
	}
	result.Executor = resilience.NewExecutorWithOptions(resilience.FromConfig(r)...)
}

// Goal looks up a goal by name. An empty name returns the default goal.
func (r *BuildResult) Goal(name string) (*action.Goal, error) {
	if name == "" {
		if r.DefaultGoal == nil {
			return nil, fmt.Errorf("%w: no goal selected", domainconfig.ErrUnknownGoal)
		}
		return r.DefaultGoal, nil
	}
	g, ok := r.Goals[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainconfig.ErrUnknownGoal, name)
	}
	return g, nil
}

// GoalNames returns the declared goal names in sorted order.
func (r *BuildResult) GoalNames() []string {
	names := make([]string, 0, len(r.Goals))
	for name := range r.Goals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Policy returns the budget policy combined with any extra policies.
func (r *BuildResult) Policy() policy.Policy {
	if len(r.Policies) == 0 {
		return r.Budget.EarlyTerminationPolicy()
	}
	all := append([]policy.Policy{r.Budget.EarlyTerminationPolicy()}, r.Policies...)
	return policy.FirstOf(all...)
}

// NewBlackboard returns a fresh blackboard seeded with the declared bindings
// and conditions.
func (r *BuildResult) NewBlackboard() *blackboard.Blackboard {
	bb := blackboard.NewWith(r.bindings)
	for name, value := range r.conditions {
		bb.SetCondition(name, value)
	}
	return bb
}

// DefaultConfig returns a minimal default configuration.
func DefaultConfig() *domainconfig.Config {
	return &domainconfig.Config{
		Name:    "goap",
		Version: "1.0",
		Process: domainconfig.ProcessSettings{
			MaxSteps: DefaultMaxSteps,
			Planner:  planner.TypeAStar,
		},
		Logging: domainconfig.LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
