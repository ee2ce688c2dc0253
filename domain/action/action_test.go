package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
)

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		builder *Builder
		wantErr error
	}{
		{
			name:    "valid",
			builder: NewBuilder("fetch").Requires("url", condition.True).Produces("page", condition.True).WithCost(1),
		},
		{
			name:    "zero cost is allowed",
			builder: NewBuilder("free").Produces("x", condition.True),
		},
		{
			name:    "empty name",
			builder: NewBuilder("").Produces("x", condition.True),
			wantErr: ErrEmptyName,
		},
		{
			name:    "no effects",
			builder: NewBuilder("noop").Requires("x", condition.True),
			wantErr: ErrNoEffects,
		},
		{
			name:    "negative cost",
			builder: NewBuilder("bad").Produces("x", condition.True).WithCost(-0.5),
			wantErr: ErrNegativeCost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, err := tt.builder.Build()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Build() error = %v", err)
				}
				if a == nil {
					t.Fatal("Build() returned nil action")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrMalformedDefinition) {
				t.Errorf("Build() error = %v, want ErrMalformedDefinition", err)
			}
		})
	}
}

func TestBuilder_MustBuildPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("MustBuild() should panic on invalid action")
		}
	}()
	NewBuilder("broken").MustBuild()
}

func TestAction_Immutable(t *testing.T) {
	t.Parallel()

	b := NewBuilder("write").Requires("draft", condition.True).Produces("published", condition.True)
	a := b.MustBuild()

	b.Requires("approved", condition.True)
	if a.PreconditionCount() != 1 {
		t.Errorf("builder changes leaked into built action: %d preconditions", a.PreconditionCount())
	}

	pre := a.Preconditions()
	pre["draft"] = condition.False
	if v, _ := a.Precondition("draft"); v != condition.True {
		t.Error("Preconditions() must return a copy")
	}
	eff := a.Effects()
	delete(eff, "published")
	if _, ok := a.Effect("published"); !ok {
		t.Error("Effects() must return a copy")
	}
}

func TestAction_Cost(t *testing.T) {
	t.Parallel()

	static := NewBuilder("s").Produces("x", condition.True).WithCost(2.5).MustBuild()
	if got := static.Cost(nil); got != 2.5 {
		t.Errorf("Cost() = %v, want 2.5", got)
	}
	if static.HasDynamicCost() {
		t.Error("HasDynamicCost() = true for fixed cost")
	}

	dynamic := NewBuilder("d").Produces("x", condition.True).
		WithCostFunc(func(bb *blackboard.Blackboard) float64 {
			if bb != nil && bb.Has("cache") {
				return 0.1
			}
			return 5
		}).MustBuild()

	if got := dynamic.Cost(blackboard.New()); got != 5 {
		t.Errorf("Cost(empty) = %v, want 5", got)
	}
	if got := dynamic.Cost(blackboard.NewWith(blackboard.Bindings{blackboard.Bind("cache", true)})); got != 0.1 {
		t.Errorf("Cost(cached) = %v, want 0.1", got)
	}
}

func TestAction_Perform(t *testing.T) {
	t.Parallel()

	a := NewBuilder("greet").Produces("greeted", condition.True).
		WithBindingsFunc(func(_ context.Context, bb *blackboard.Blackboard) (blackboard.Bindings, error) {
			name, _ := blackboard.Get[string](bb, "name")
			return blackboard.Bindings{blackboard.Bind("greeting", "hello "+name)}, nil
		}).
		WithTimeout(time.Second).
		WithRetry(3, 10*time.Millisecond).
		MustBuild()

	res, err := a.Perform(context.Background(), blackboard.NewWith(blackboard.Bindings{blackboard.Bind("name", "ada")}))
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if len(res.Bindings) != 1 || res.Bindings[0].Value != "hello ada" {
		t.Errorf("Perform() = %+v", res)
	}
	if a.Timeout() != time.Second || a.Retry().MaxAttempts != 3 {
		t.Errorf("Timeout() = %v, Retry() = %+v", a.Timeout(), a.Retry())
	}

	planningOnly := NewBuilder("p").Produces("x", condition.True).MustBuild()
	if _, err := planningOnly.Perform(context.Background(), blackboard.New()); !errors.Is(err, ErrNoPerformer) {
		t.Errorf("Perform() error = %v, want ErrNoPerformer", err)
	}
}

func TestValidateSet(t *testing.T) {
	t.Parallel()

	perform := func(context.Context, *blackboard.Blackboard) (Result, error) { return Result{}, nil }
	a := NewBuilder("a").Produces("x", condition.True).WithPerformer(perform).MustBuild()
	a2 := NewBuilder("a").Produces("y", condition.True).WithPerformer(perform).MustBuild()
	noPerformer := NewBuilder("b").Produces("x", condition.True).MustBuild()

	if err := ValidateSet([]*Action{a}); err != nil {
		t.Errorf("ValidateSet() error = %v", err)
	}
	if err := ValidateSet([]*Action{a, a2}); !errors.Is(err, ErrDuplicateAction) {
		t.Errorf("ValidateSet(dup) error = %v, want ErrDuplicateAction", err)
	}
	if err := ValidateSet([]*Action{noPerformer}); !errors.Is(err, ErrNoPerformer) {
		t.Errorf("ValidateSet(no performer) error = %v, want ErrNoPerformer", err)
	}
	if err := ValidateSet([]*Action{a, nil}); !errors.Is(err, ErrMalformedDefinition) {
		t.Errorf("ValidateSet(nil) error = %v, want ErrMalformedDefinition", err)
	}
}

func TestConditionNames(t *testing.T) {
	t.Parallel()

	a := NewBuilder("a").Requires("in", condition.True).Produces("mid", condition.True).MustBuild()
	g := NewGoal("g").Requires("out", condition.True).MustBuild()
	names := ConditionNames([]*Action{a}, g)
	want := []string{"in", "mid", "out"}
	if len(names) != len(want) {
		t.Fatalf("ConditionNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ConditionNames()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestGoal(t *testing.T) {
	t.Parallel()

	if _, err := NewGoal("empty").Build(); !errors.Is(err, ErrNoPreconditions) {
		t.Errorf("Build() error = %v, want ErrNoPreconditions", err)
	}
	if _, err := NewGoal("").Requires("x", condition.True).Build(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Build() error = %v, want ErrEmptyName", err)
	}

	g := NewGoal("publish").Requires("published", condition.True).Requires("reviewed", condition.True).WithValue(10).MustBuild()
	ws := condition.NewWorldState(map[string]condition.Determination{"published": condition.True})
	if g.SatisfiedBy(ws) {
		t.Error("SatisfiedBy() = true, want false")
	}
	if d := g.Distance(ws); d != 1 {
		t.Errorf("Distance() = %d, want 1", d)
	}
	if !g.SatisfiedBy(ws.Apply(map[string]condition.Determination{"reviewed": condition.True})) {
		t.Error("SatisfiedBy() = false, want true")
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()

	g := NewGoal("g").Requires("x", condition.True).WithValue(5).MustBuild()
	a := NewBuilder("a").Produces("y", condition.True).MustBuild()
	b := NewBuilder("b").Produces("x", condition.True).MustBuild()

	empty := NewPlan(g, nil, 0)
	if !empty.IsComplete() || empty.Head() != nil || empty.String() != "<empty>" {
		t.Errorf("empty plan = %v", empty)
	}

	p := NewPlan(g, []*Action{a, b}, 3)
	if p.Len() != 2 || p.Head() != a {
		t.Errorf("Len() = %d, Head() = %v", p.Len(), p.Head())
	}
	if p.String() != "a -> b" {
		t.Errorf("String() = %s, want a -> b", p.String())
	}
	if p.NetValue() != 2 {
		t.Errorf("NetValue() = %v, want 2", p.NetValue())
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()

	goal := NewGoal("g").Requires("report", condition.True).MustBuild()
	search := NewBuilder("search").Requires("query", condition.True).Produces("results", condition.True).MustBuild()
	write := NewBuilder("write").Requires("results", condition.True).Produces("report", condition.True).MustBuild()
	unrelated := NewBuilder("tweet").Produces("tweeted", condition.True).MustBuild()
	wrongValue := NewBuilder("unwrite").Produces("report", condition.False).MustBuild()

	kept := Prune([]*Action{unrelated, search, wrongValue, write}, goal)
	if len(kept) != 2 || kept[0] != search || kept[1] != write {
		t.Errorf("Prune() = %v, want [search write]", kept)
	}
}
