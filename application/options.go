package application

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/domain/middleware"
	"github.com/felixgeelhaar/goap/domain/policy"
	"github.com/felixgeelhaar/goap/domain/process"
	infraconfig "github.com/felixgeelhaar/goap/infrastructure/config"
	"github.com/felixgeelhaar/goap/infrastructure/planner"
	"github.com/felixgeelhaar/goap/infrastructure/resilience"
)

// Option configures the engine.
type Option func(*EngineConfig)

// WithActions sets the candidate action set.
func WithActions(actions ...*action.Action) Option {
	return func(c *EngineConfig) {
		c.Actions = actions
	}
}

// WithPlanner sets the planner.
func WithPlanner(p planner.Planner) Option {
	return func(c *EngineConfig) {
		c.Planner = p
	}
}

// WithDeterminer sets the condition determiner.
func WithDeterminer(d condition.Determiner) Option {
	return func(c *EngineConfig) {
		c.Determiner = d
	}
}

// WithBudget sets the default budget. Zero ceilings are unlimited.
func WithBudget(b policy.Budget) Option {
	return func(c *EngineConfig) {
		c.Budget = &b
	}
}

// WithPolicies adds early-termination policies consulted with the budget.
func WithPolicies(policies ...policy.Policy) Option {
	return func(c *EngineConfig) {
		c.Policies = append(c.Policies, policies...)
	}
}

// WithNoProgressLimit sets how many consecutive steps without progress
// end a process. A negative limit disables the check.
func WithNoProgressLimit(n int) Option {
	return func(c *EngineConfig) {
		c.NoProgressLimit = n
	}
}

// WithMaxSteps sets the maximum number of steps.
func WithMaxSteps(n int) Option {
	return func(c *EngineConfig) {
		c.MaxSteps = n
	}
}

// WithPrune enables pruning of irrelevant actions before planning.
func WithPrune(enabled bool) Option {
	return func(c *EngineConfig) {
		c.Prune = enabled
	}
}

// WithShowPlanning logs every computed plan at info level.
func WithShowPlanning(enabled bool) Option {
	return func(c *EngineConfig) {
		c.ShowPlanning = enabled
	}
}

// WithMiddleware sets a custom middleware registry.
// If not set, the engine uses a default middleware chain with:
// - Logging middleware (execution timing and bindings)
// - Tracing middleware, when a tracer is configured
// - Delay and timeout middleware
// - Resilience middleware, when an executor is configured
func WithMiddleware(m *middleware.Registry) Option {
	return func(c *EngineConfig) {
		c.Middleware = m
	}
}

// WithExecutor sets the resilient executor.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *EngineConfig) {
		c.Executor = e
	}
}

// WithActionTimeout bounds actions that declare no timeout.
func WithActionTimeout(d time.Duration) Option {
	return func(c *EngineConfig) {
		c.ActionTimeout = d
	}
}

// WithDelay pauses before each action.
func WithDelay(d time.Duration) Option {
	return func(c *EngineConfig) {
		c.Delay = d
	}
}

// WithTracer adds a span around each action execution.
func WithTracer(t trace.Tracer) Option {
	return func(c *EngineConfig) {
		c.Tracer = t
	}
}

// WithListeners adds process event listeners.
func WithListeners(listeners ...event.Listener) Option {
	return func(c *EngineConfig) {
		c.Listeners = append(c.Listeners, listeners...)
	}
}

// WithProcessStore persists process records.
func WithProcessStore(s process.Store) Option {
	return func(c *EngineConfig) {
		c.Processes = s
	}
}

// FromConfig returns the options a built configuration describes.
func FromConfig(r *infraconfig.BuildResult) []Option {
	opts := []Option{
		WithActions(r.Actions...),
		WithPlanner(r.Planner),
		WithBudget(r.Budget),
		WithPolicies(r.Policies...),
		WithMaxSteps(r.MaxSteps),
		WithPrune(r.Prune),
		WithShowPlanning(r.ShowPlanning),
		WithDelay(r.Delay),
		WithActionTimeout(r.ActionTimeout),
	}
	if r.Executor != nil {
		opts = append(opts, WithExecutor(r.Executor))
	}
	return opts
}

// NewEngineWithOptions creates an engine with functional options.
func NewEngineWithOptions(opts ...Option) (*Engine, error) {
	config := EngineConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	return NewEngine(config)
}

// RunOption configures a single process run.
type RunOption func(*runConfig)

type runConfig struct {
	processID  string
	blackboard *blackboard.Blackboard
	budget     policy.Budget
	policies   []policy.Policy
}

// WithProcessID sets the process ID instead of generating one.
func WithProcessID(id string) RunOption {
	return func(c *runConfig) {
		c.processID = id
	}
}

// WithBlackboard runs the process over bb. The caller must not use bb
// while the process runs.
func WithBlackboard(bb *blackboard.Blackboard) RunOption {
	return func(c *runConfig) {
		c.blackboard = bb
	}
}

// WithBindings seeds a fresh blackboard with bindings.
func WithBindings(bindings blackboard.Bindings) RunOption {
	return func(c *runConfig) {
		c.blackboard = blackboard.NewWith(bindings)
	}
}

// WithRunBudget overrides the engine budget for one run.
func WithRunBudget(b policy.Budget) RunOption {
	return func(c *runConfig) {
		c.budget = b
	}
}

// WithRunPolicies adds policies for one run.
func WithRunPolicies(policies ...policy.Policy) RunOption {
	return func(c *runConfig) {
		c.policies = append(c.policies, policies...)
	}
}
