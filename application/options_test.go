package application

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/middleware"
	"github.com/felixgeelhaar/goap/domain/policy"
	infraconfig "github.com/felixgeelhaar/goap/infrastructure/config"
	"github.com/felixgeelhaar/goap/infrastructure/planner"
	"github.com/felixgeelhaar/goap/infrastructure/resilience"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	fetch := binder("fetch", 1, nil, "fetched")
	p := planner.NewUtility()
	registry := middleware.NewRegistry()
	extra := policy.Never()

	var c EngineConfig
	for _, opt := range []Option{
		WithActions(fetch),
		WithPlanner(p),
		WithBudget(policy.Budget{Actions: 7}),
		WithPolicies(extra),
		WithNoProgressLimit(3),
		WithMaxSteps(9),
		WithPrune(true),
		WithShowPlanning(true),
		WithMiddleware(registry),
		WithActionTimeout(time.Second),
		WithDelay(time.Millisecond),
	} {
		opt(&c)
	}

	if len(c.Actions) != 1 || c.Actions[0] != fetch {
		t.Errorf("Actions = %v, want [fetch]", c.Actions)
	}
	if c.Planner != p {
		t.Errorf("Planner = %v, want utility planner", c.Planner)
	}
	if c.Budget == nil || c.Budget.Actions != 7 {
		t.Errorf("Budget = %v, want 7 actions", c.Budget)
	}
	if len(c.Policies) != 1 {
		t.Errorf("len(Policies) = %d, want 1", len(c.Policies))
	}
	if c.NoProgressLimit != 3 || c.MaxSteps != 9 {
		t.Errorf("NoProgressLimit, MaxSteps = %d, %d, want 3, 9", c.NoProgressLimit, c.MaxSteps)
	}
	if !c.Prune || !c.ShowPlanning {
		t.Errorf("Prune, ShowPlanning = %v, %v, want true, true", c.Prune, c.ShowPlanning)
	}
	if c.Middleware != registry {
		t.Error("Middleware is not the given registry")
	}
	if c.ActionTimeout != time.Second || c.Delay != time.Millisecond {
		t.Errorf("ActionTimeout, Delay = %v, %v", c.ActionTimeout, c.Delay)
	}
}

func TestRunOptions(t *testing.T) {
	t.Parallel()

	var rc runConfig
	for _, opt := range []RunOption{
		WithProcessID("proc-7"),
		WithBindings(blackboard.Bindings{blackboard.Bind("ticket", "T-1")}),
		WithRunBudget(policy.Budget{Tokens: 5}),
		WithRunPolicies(policy.Never(), policy.Never()),
	} {
		opt(&rc)
	}

	if rc.processID != "proc-7" {
		t.Errorf("processID = %q, want %q", rc.processID, "proc-7")
	}
	if v, ok := blackboard.Get[string](rc.blackboard, "ticket"); !ok || v != "T-1" {
		t.Errorf("ticket = %q, %v, want T-1, true", v, ok)
	}
	if rc.budget.Tokens != 5 {
		t.Errorf("budget.Tokens = %d, want 5", rc.budget.Tokens)
	}
	if len(rc.policies) != 2 {
		t.Errorf("len(policies) = %d, want 2", len(rc.policies))
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	fetch := binder("fetch", 1, nil, "fetched")
	result := &infraconfig.BuildResult{
		Actions:       []*action.Action{fetch},
		Budget:        policy.Budget{Cost: 3},
		Planner:       planner.NewAStar(),
		MaxSteps:      12,
		Prune:         true,
		ActionTimeout: time.Second,
		Executor:      resilience.NewDefaultExecutor(),
	}

	var c EngineConfig
	for _, opt := range FromConfig(result) {
		opt(&c)
	}

	if len(c.Actions) != 1 {
		t.Errorf("len(Actions) = %d, want 1", len(c.Actions))
	}
	if c.Budget == nil || c.Budget.Cost != 3 {
		t.Errorf("Budget = %v, want cost 3", c.Budget)
	}
	if c.MaxSteps != 12 || !c.Prune {
		t.Errorf("MaxSteps, Prune = %d, %v, want 12, true", c.MaxSteps, c.Prune)
	}
	if c.Executor == nil {
		t.Error("Executor = nil, want the configured executor")
	}

	e, err := NewEngine(c)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if e.maxSteps != 12 {
		t.Errorf("maxSteps = %d, want 12", e.maxSteps)
	}
}
