// Package application provides the process engine: the plan, act and observe
// loop that drives one goal to a terminal status.
package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/domain/middleware"
	"github.com/felixgeelhaar/goap/domain/policy"
	"github.com/felixgeelhaar/goap/domain/process"
	"github.com/felixgeelhaar/goap/infrastructure/logging"
	inframw "github.com/felixgeelhaar/goap/infrastructure/middleware"
	"github.com/felixgeelhaar/goap/infrastructure/planner"
	"github.com/felixgeelhaar/goap/infrastructure/resilience"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxSteps bounds a process when no step ceiling is configured.
const DefaultMaxSteps = 100

// DefaultNoProgressLimit is how many consecutive steps without progress
// end a process.
const DefaultNoProgressLimit = 1

// PolicyMaxSteps names the termination raised by the engine step ceiling.
const PolicyMaxSteps = "max_steps"

var (
	// ErrNoGoal is returned by Run when no goal is given.
	ErrNoGoal = errors.New("goal is required")

	// ErrNoGoals is returned by RunAny when the goal list is empty.
	ErrNoGoals = errors.New("at least one goal is required")
)

// Engine runs processes over a fixed action set. It holds no per-process
// state, so one engine may run many processes concurrently.
type Engine struct {
	actions         []*action.Action
	planner         planner.Planner
	determiner      condition.Determiner
	budget          policy.Budget
	policies        []policy.Policy
	noProgressLimit int
	maxSteps        int
	prune           bool
	showPlanning    bool
	middleware      *middleware.Registry
	handler         middleware.Handler
	listeners       event.Multicast
	processes       process.Store
}

// EngineConfig contains configuration for the engine.
type EngineConfig struct {
	// Actions is the candidate action set. It is validated once here.
	Actions []*action.Action
	// Planner defaults to A*.
	Planner planner.Planner
	// Determiner defaults to a blackboard determiner.
	Determiner condition.Determiner
	// Budget defaults to policy.DefaultBudget when nil.
	Budget *policy.Budget
	// Policies are consulted alongside the budget.
	Policies []policy.Policy
	// NoProgressLimit is the consecutive no-progress steps that end a
	// process. Zero selects DefaultNoProgressLimit; negative disables it.
	NoProgressLimit int
	// MaxSteps is the hard step ceiling. Zero selects DefaultMaxSteps.
	MaxSteps int
	// Prune removes actions that cannot contribute to the goal before planning.
	Prune bool
	// ShowPlanning logs every computed plan at info level.
	ShowPlanning bool
	// Middleware replaces the default execution chain.
	Middleware *middleware.Registry
	// Executor adds bulkhead, circuit breaker and declared retries.
	Executor *resilience.Executor
	// ActionTimeout bounds actions that declare no timeout.
	ActionTimeout time.Duration
	// Delay pauses before each action.
	Delay time.Duration
	// Tracer adds a span around each action execution.
	Tracer trace.Tracer
	// Listeners observe process events.
	Listeners []event.Listener
	// Processes persists process records when set.
	Processes process.Store
}

// NewEngine creates a new engine with the given configuration.
func NewEngine(config EngineConfig) (*Engine, error) {
	if err := action.ValidateSet(config.Actions); err != nil {
		return nil, err
	}

	e := &Engine{
		actions:         append([]*action.Action(nil), config.Actions...),
		planner:         config.Planner,
		determiner:      config.Determiner,
		policies:        config.Policies,
		noProgressLimit: config.NoProgressLimit,
		maxSteps:        config.MaxSteps,
		prune:           config.Prune,
		showPlanning:    config.ShowPlanning,
		middleware:      config.Middleware,
		listeners:       event.Multicast(config.Listeners),
		processes:       config.Processes,
	}

	if e.planner == nil {
		e.planner = planner.NewAStar()
	}
	if e.determiner == nil {
		e.determiner = condition.NewBlackboardDeterminer()
	}
	e.budget = policy.DefaultBudget()
	if config.Budget != nil {
		if err := config.Budget.Validate(); err != nil {
			return nil, err
		}
		e.budget = *config.Budget
	}
	if e.noProgressLimit == 0 {
		e.noProgressLimit = DefaultNoProgressLimit
	}
	if e.maxSteps <= 0 {
		e.maxSteps = DefaultMaxSteps
	}
	if e.middleware == nil {
		e.middleware = defaultMiddlewareChain(config)
	}
	e.handler = e.middleware.Handler(middleware.Perform)

	return e, nil
}

// defaultMiddlewareChain wraps performers with logging, an optional span,
// the operation delay, the timeout and, when configured, the resilient
// executor. Timeout sits outside the executor so it bounds all attempts.
func defaultMiddlewareChain(config EngineConfig) *middleware.Registry {
	registry := middleware.NewRegistry()

	registry.Use(inframw.Logging(inframw.LoggingConfig{LogBindings: config.ShowPlanning}))
	if config.Tracer != nil {
		registry.Use(inframw.NewTracing(inframw.WithTracer(config.Tracer)))
	}
	registry.Use(inframw.Delay(config.Delay))
	registry.Use(inframw.Timeout(config.ActionTimeout))
	if config.Executor != nil {
		registry.Use(inframw.Resilience(config.Executor))
	}

	return registry
}

// Actions returns the engine's action set.
func (e *Engine) Actions() []*action.Action {
	return append([]*action.Action(nil), e.actions...)
}

// Budget returns the default budget of processes run by the engine.
func (e *Engine) Budget() policy.Budget {
	return e.budget
}

// Plan derives the world state from bb and plans toward goal without
// executing anything. A nil plan means the goal is unreachable.
func (e *Engine) Plan(ctx context.Context, goal *action.Goal, bb *blackboard.Blackboard) (*action.Plan, condition.WorldState, error) {
	if goal == nil {
		return nil, condition.WorldState{}, ErrNoGoal
	}
	if bb == nil {
		bb = blackboard.New()
	}
	ws := condition.Derive(e.determiner, bb, action.ConditionNames(e.actions, goal))
	actions := e.actions
	if e.prune {
		actions = action.Prune(actions, goal)
	}
	plan, err := e.planner.PlanToGoal(ctx, planner.Request{
		World:      ws,
		Actions:    actions,
		Goal:       goal,
		Blackboard: bb,
	})
	return plan, ws, err
}

// Run drives a new process toward goal until it reaches a terminal status.
// Expected outcomes (stuck, budget exhausted, action failure) are reported
// on the returned process, not as errors. Errors are reserved for invalid
// input and context cancellation; on cancellation the process ends FAILED
// and is still returned.
func (e *Engine) Run(ctx context.Context, goal *action.Goal, opts ...RunOption) (*process.Process, error) {
	if goal == nil {
		return nil, ErrNoGoal
	}

	rc := runConfig{budget: e.budget}
	for _, opt := range opts {
		opt(&rc)
	}
	if err := rc.budget.Validate(); err != nil {
		return nil, err
	}
	if rc.processID == "" {
		rc.processID = generateProcessID()
	}
	if rc.blackboard == nil {
		rc.blackboard = blackboard.New()
	}

	r, err := e.newRun(goal, rc)
	if err != nil {
		return nil, err
	}
	defer r.interp.Stop()

	if err := r.start(ctx); err != nil {
		return nil, err
	}

	for step := 1; !r.process.IsTerminal(); step++ {
		if err := ctx.Err(); err != nil {
			r.finish(ctx, process.Termination{
				Status: process.StatusFailed,
				Reason: "context cancelled",
			}.WithError(err))
			return r.process, err
		}
		if step > e.maxSteps {
			r.finish(ctx, process.Termination{
				Status: process.StatusTerminatedEarly,
				Policy: PolicyMaxSteps,
				Reason: fmt.Sprintf("step ceiling %d reached", e.maxSteps),
			})
			break
		}
		r.step(ctx, step)
	}

	return r.process, nil
}

// RunAny runs the goal whose plan has the best net value from the initial
// blackboard. When no goal is reachable the first goal is run, which ends
// STUCK unless the blackboard changes.
func (e *Engine) RunAny(ctx context.Context, goals []*action.Goal, opts ...RunOption) (*process.Process, error) {
	if len(goals) == 0 {
		return nil, ErrNoGoals
	}

	rc := runConfig{}
	for _, opt := range opts {
		opt(&rc)
	}
	bb := rc.blackboard
	if bb == nil {
		bb = blackboard.New()
		opts = append(opts, WithBlackboard(bb))
	}

	ws := condition.Derive(e.determiner, bb, action.ConditionNames(e.actions, goals...))
	best, err := planner.BestValuePlanToAnyGoal(ctx, e.planner, planner.Request{
		World:      ws,
		Actions:    e.actions,
		Blackboard: bb,
	}, goals)
	if err != nil {
		return nil, fmt.Errorf("choosing goal: %w", err)
	}

	goal := goals[0]
	if best != nil && best.Goal != nil {
		goal = best.Goal
	}
	logging.Debug().
		Add(logging.Goal(goal.Name())).
		Add(logging.Str("candidates", fmt.Sprint(len(goals)))).
		Msg("goal selected")

	return e.Run(ctx, goal, opts...)
}

// generateProcessID creates a unique process ID using timestamp and random bytes.
func generateProcessID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("proc-%d-%s", time.Now().UnixNano(), hex.EncodeToString(b))
}
