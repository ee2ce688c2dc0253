package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
)

const (
	T = condition.True
	F = condition.False
)

func world(values map[string]condition.Determination) condition.WorldState {
	return condition.NewWorldState(values)
}

func act(name string, cost float64, pre, eff map[string]condition.Determination) *action.Action {
	return action.NewBuilder(name).WithPreconditions(pre).WithEffects(eff).WithCost(cost).MustBuild()
}

func goalOf(pre map[string]condition.Determination) *action.Goal {
	return action.NewGoal("goal").WithPreconditions(pre).MustBuild()
}

func permutations(in []*action.Action) [][]*action.Action {
	if len(in) <= 1 {
		return [][]*action.Action{append([]*action.Action(nil), in...)}
	}
	var out [][]*action.Action
	for i := range in {
		rest := make([]*action.Action, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]*action.Action{in[i]}, p...))
		}
	}
	return out
}

func TestAStar_AlreadySatisfied(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		actions []*action.Action
	}{
		{"no actions", nil},
		{"unrelated actions", []*action.Action{act("a", 1, nil, map[string]condition.Determination{"x": T})}},
		{"actions that could also reach the goal", []*action.Action{act("b", 0, nil, map[string]condition.Determination{"done": T})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan, err := NewAStar().PlanToGoal(context.Background(), Request{
				World:   world(map[string]condition.Determination{"done": T}),
				Actions: tt.actions,
				Goal:    goalOf(map[string]condition.Determination{"done": T}),
			})
			if err != nil {
				t.Fatalf("PlanToGoal() error = %v", err)
			}
			if plan == nil {
				t.Fatal("PlanToGoal() = nil, want empty plan")
			}
			if plan.Len() != 0 || plan.Cost != 0 {
				t.Errorf("PlanToGoal() = %v (cost %v), want empty plan with cost 0", plan, plan.Cost)
			}
		})
	}
}

func TestAStar_Unreachable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		world   condition.WorldState
		actions []*action.Action
		goal    *action.Goal
	}{
		{
			name:    "no producer",
			world:   world(nil),
			actions: []*action.Action{act("a", 1, nil, map[string]condition.Determination{"x": T})},
			goal:    goalOf(map[string]condition.Determination{"y": T}),
		},
		{
			name:  "producer requires a condition nothing imports",
			world: world(nil),
			actions: []*action.Action{
				act("write", 1, map[string]condition.Determination{"draft": T}, map[string]condition.Determination{"report": T}),
			},
			goal: goalOf(map[string]condition.Determination{"report": T}),
		},
		{
			name:    "wrong value produced",
			world:   world(map[string]condition.Determination{"x": T}),
			actions: []*action.Action{act("a", 1, nil, map[string]condition.Determination{"x": F})},
			goal:    goalOf(map[string]condition.Determination{"x": T, "y": T}),
		},
		{
			name:  "one of two goal conditions unreachable",
			world: world(nil),
			actions: []*action.Action{
				act("a", 1, nil, map[string]condition.Determination{"x": T}),
			},
			goal: goalOf(map[string]condition.Determination{"x": T, "y": F}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan, err := NewAStar().PlanToGoal(context.Background(), Request{World: tt.world, Actions: tt.actions, Goal: tt.goal})
			if err != nil {
				t.Fatalf("PlanToGoal() error = %v", err)
			}
			if plan != nil {
				t.Errorf("PlanToGoal() = %v, want nil", plan)
			}
		})
	}
}

// unreachableChain builds n actions forming a chain step0 -> step1 -> ...
// whose first precondition can never be established.
func unreachableChain(n int) ([]*action.Action, *action.Goal) {
	actions := make([]*action.Action, 0, n)
	for i := 0; i < n; i++ {
		actions = append(actions, act(
			fmt.Sprintf("hop-%04d", i),
			1,
			map[string]condition.Determination{fmt.Sprintf("step%d", i): T},
			map[string]condition.Determination{fmt.Sprintf("step%d", i+1): T},
		))
	}
	return actions, goalOf(map[string]condition.Determination{fmt.Sprintf("step%d", n): T})
}

func TestAStar_UnreachableIsFast(t *testing.T) {
	t.Parallel()

	for _, n := range []int{10, 100, 1000} {
		t.Run(fmt.Sprintf("%d actions", n), func(t *testing.T) {
			t.Parallel()
			actions, goal := unreachableChain(n)
			start := time.Now()
			plan, err := NewAStar().PlanToGoal(context.Background(), Request{World: world(nil), Actions: actions, Goal: goal})
			elapsed := time.Since(start)
			if err != nil {
				t.Fatalf("PlanToGoal() error = %v", err)
			}
			if plan != nil {
				t.Errorf("PlanToGoal() = %v, want nil", plan)
			}
			if elapsed >= 100*time.Millisecond {
				t.Errorf("PlanToGoal() took %s, want < 100ms", elapsed)
			}
		})
	}
}

func TestAStar_TieBreakPrefersMorePreconditions(t *testing.T) {
	t.Parallel()

	start := world(map[string]condition.Determination{"a": T, "b": T, "c": T})
	goal := goalOf(map[string]condition.Determination{"done": T})
	specific := act("specific", 1, map[string]condition.Determination{"a": T, "b": T, "c": T}, map[string]condition.Determination{"done": T})
	middle := act("middle", 1, map[string]condition.Determination{"a": T, "b": T}, map[string]condition.Determination{"done": T})
	generic := act("generic", 1, map[string]condition.Determination{"a": T}, map[string]condition.Determination{"done": T})

	for i, actions := range permutations([]*action.Action{generic, specific, middle}) {
		plan, err := NewAStar().PlanToGoal(context.Background(), Request{World: start, Actions: actions, Goal: goal})
		if err != nil {
			t.Fatalf("permutation %d: PlanToGoal() error = %v", i, err)
		}
		if plan == nil || plan.Len() != 1 || plan.Head() != specific {
			t.Errorf("permutation %d (%v): PlanToGoal() = %v, want specific", i, actions, plan)
		}
	}
}

func TestAStar_TieBreakWithDistinctEffects(t *testing.T) {
	t.Parallel()

	// Both reach the goal at equal cost but leave different states behind.
	start := world(map[string]condition.Determination{"a": T, "b": T})
	goal := goalOf(map[string]condition.Determination{"done": T})
	two := act("two", 2, map[string]condition.Determination{"a": T, "b": T}, map[string]condition.Determination{"done": T, "x": T})
	one := act("one", 2, map[string]condition.Determination{"a": T}, map[string]condition.Determination{"done": T, "y": T})

	for i, actions := range permutations([]*action.Action{one, two}) {
		plan, err := NewAStar().PlanToGoal(context.Background(), Request{World: start, Actions: actions, Goal: goal})
		if err != nil || plan == nil || plan.Head() != two {
			t.Errorf("permutation %d: PlanToGoal() = %v, %v, want two", i, plan, err)
		}
	}
}

func TestAStar_CheaperBeatsMorePreconditions(t *testing.T) {
	t.Parallel()

	start := world(map[string]condition.Determination{"a": T, "b": T, "c": T})
	goal := goalOf(map[string]condition.Determination{"done": T})
	expensive := act("expensive", 5, map[string]condition.Determination{"a": T, "b": T, "c": T}, map[string]condition.Determination{"done": T})
	cheap := act("cheap", 1, map[string]condition.Determination{"a": T}, map[string]condition.Determination{"done": T})

	for i, actions := range permutations([]*action.Action{expensive, cheap}) {
		plan, err := NewAStar().PlanToGoal(context.Background(), Request{World: start, Actions: actions, Goal: goal})
		if err != nil || plan == nil || plan.Head() != cheap {
			t.Errorf("permutation %d: PlanToGoal() = %v, %v, want cheap", i, plan, err)
		}
		if plan != nil && plan.Cost != 1 {
			t.Errorf("permutation %d: Cost = %v, want 1", i, plan.Cost)
		}
	}
}

func TestAStar_ChainsActions(t *testing.T) {
	t.Parallel()

	a := act("A", 0.75, nil, map[string]condition.Determination{"mid": T})
	b := act("B", 1.5, map[string]condition.Determination{"mid": T}, map[string]condition.Determination{"done": T})
	goal := goalOf(map[string]condition.Determination{"done": T})

	for i, actions := range permutations([]*action.Action{a, b}) {
		plan, err := NewAStar().PlanToGoal(context.Background(), Request{World: world(nil), Actions: actions, Goal: goal})
		if err != nil {
			t.Fatalf("PlanToGoal() error = %v", err)
		}
		if plan == nil || plan.Len() != 2 || plan.Actions[0] != a || plan.Actions[1] != b {
			t.Fatalf("permutation %d: PlanToGoal() = %v, want A -> B", i, plan)
		}
		if plan.Cost != a.Cost(nil)+b.Cost(nil) {
			t.Errorf("Cost = %v, want %v", plan.Cost, a.Cost(nil)+b.Cost(nil))
		}
	}
}

func TestAStar_PlanIsExecutableInOrder(t *testing.T) {
	t.Parallel()

	actions := []*action.Action{
		act("gather", 1, nil, map[string]condition.Determination{"wood": T}),
		act("mine", 1, nil, map[string]condition.Determination{"ore": T}),
		act("smelt", 2, map[string]condition.Determination{"ore": T, "wood": T}, map[string]condition.Determination{"iron": T, "wood": F}),
		act("forge", 2, map[string]condition.Determination{"iron": T, "wood": T}, map[string]condition.Determination{"sword": T}),
		act("decoy", 0.1, nil, map[string]condition.Determination{"shiny": T}),
	}
	goal := goalOf(map[string]condition.Determination{"sword": T})
	start := world(map[string]condition.Determination{"wood": F, "ore": F, "iron": F, "sword": F})

	plan, err := NewAStar().PlanToGoal(context.Background(), Request{World: start, Actions: actions, Goal: goal})
	if err != nil || plan == nil {
		t.Fatalf("PlanToGoal() = %v, %v", plan, err)
	}

	ws := start
	for i, a := range plan.Actions {
		if !a.ApplicableIn(ws) {
			t.Fatalf("step %d (%s) not applicable in %s", i, a.Name(), ws)
		}
		ws = ws.Apply(a.Effects())
	}
	if !goal.SatisfiedBy(ws) {
		t.Errorf("plan %v does not reach the goal: %s", plan, ws)
	}
	// gather, mine, smelt, gather, forge
	if plan.Len() != 5 || plan.Cost != 7 {
		t.Errorf("PlanToGoal() = %v (cost %v), want 5 steps costing 7", plan, plan.Cost)
	}
}

func TestAStar_PrefersCheaperLongerPlan(t *testing.T) {
	t.Parallel()

	direct := act("direct", 5, nil, map[string]condition.Determination{"done": T})
	step1 := act("step1", 1, nil, map[string]condition.Determination{"mid": T})
	step2 := act("step2", 1, map[string]condition.Determination{"mid": T}, map[string]condition.Determination{"done": T})

	plan, err := NewAStar().PlanToGoal(context.Background(), Request{
		World:   world(nil),
		Actions: []*action.Action{direct, step1, step2},
		Goal:    goalOf(map[string]condition.Determination{"done": T}),
	})
	if err != nil || plan == nil {
		t.Fatalf("PlanToGoal() = %v, %v", plan, err)
	}
	if plan.String() != "step1 -> step2" || plan.Cost != 2 {
		t.Errorf("PlanToGoal() = %v (cost %v), want step1 -> step2 (cost 2)", plan, plan.Cost)
	}
}

func TestAStar_CheapSubCostStepsBeatCombinedAction(t *testing.T) {
	t.Parallel()

	both := act("both", 0.5, nil, map[string]condition.Determination{"a": T, "b": T})
	pa := act("pa", 0.1, nil, map[string]condition.Determination{"a": T})
	pb := act("pb", 0.1, nil, map[string]condition.Determination{"b": T})
	goal := goalOf(map[string]condition.Determination{"a": T, "b": T})

	for i, actions := range permutations([]*action.Action{both, pa, pb}) {
		plan, err := NewAStar().PlanToGoal(context.Background(), Request{World: world(nil), Actions: actions, Goal: goal})
		if err != nil || plan == nil {
			t.Fatalf("permutation %d: PlanToGoal() = %v, %v", i, plan, err)
		}
		if plan.Len() != 2 || plan.Cost >= both.Cost(nil) {
			t.Errorf("permutation %d: PlanToGoal() = %v (cost %v), want pa and pb (cost 0.2)", i, plan, plan.Cost)
		}
	}
}

func TestAStar_DynamicCost(t *testing.T) {
	t.Parallel()

	cached := action.NewBuilder("from-cache").Produces("data", T).
		WithCostFunc(func(bb *blackboard.Blackboard) float64 {
			if bb != nil && bb.Has("cache") {
				return 0.1
			}
			return 10
		}).MustBuild()
	remote := act("from-remote", 1, nil, map[string]condition.Determination{"data": T})
	goal := goalOf(map[string]condition.Determination{"data": T})

	tests := []struct {
		name string
		bb   *blackboard.Blackboard
		want *action.Action
	}{
		{"cold cache", blackboard.New(), remote},
		{"warm cache", blackboard.NewWith(blackboard.Bindings{blackboard.Bind("cache", true)}), cached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan, err := NewAStar().PlanToGoal(context.Background(), Request{
				World:      world(nil),
				Actions:    []*action.Action{cached, remote},
				Goal:       goal,
				Blackboard: tt.bb,
			})
			if err != nil || plan == nil || plan.Head() != tt.want {
				t.Errorf("PlanToGoal() = %v, %v, want %s", plan, err, tt.want.Name())
			}
		})
	}
}

func TestAStar_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no goal", func(t *testing.T) {
		t.Parallel()
		if _, err := NewAStar().PlanToGoal(context.Background(), Request{}); !errors.Is(err, ErrNoGoal) {
			t.Errorf("PlanToGoal() error = %v, want ErrNoGoal", err)
		}
	})

	t.Run("negative dynamic cost", func(t *testing.T) {
		t.Parallel()
		bad := action.NewBuilder("bad").Produces("x", T).
			WithCostFunc(func(*blackboard.Blackboard) float64 { return -1 }).MustBuild()
		_, err := NewAStar().PlanToGoal(context.Background(), Request{
			World:   world(nil),
			Actions: []*action.Action{bad},
			Goal:    goalOf(map[string]condition.Determination{"x": T}),
		})
		if !errors.Is(err, action.ErrMalformedDefinition) || !errors.Is(err, action.ErrNegativeCost) {
			t.Errorf("PlanToGoal() error = %v, want malformed negative cost", err)
		}
	})

	t.Run("search limit", func(t *testing.T) {
		t.Parallel()
		// Independent toggles explode the state space; the goal needs all of them.
		var actions []*action.Action
		goalPre := map[string]condition.Determination{}
		for i := 0; i < 12; i++ {
			name := fmt.Sprintf("f%d", i)
			actions = append(actions, act("set-"+name, 1, nil, map[string]condition.Determination{name: T}))
			goalPre[name] = T
		}
		_, err := NewAStar(WithMaxExpansions(3)).PlanToGoal(context.Background(), Request{
			World:   world(nil),
			Actions: actions,
			Goal:    goalOf(goalPre),
		})
		if !errors.Is(err, ErrSearchLimit) {
			t.Errorf("PlanToGoal() error = %v, want ErrSearchLimit", err)
		}
	})
}

func TestAStar_IgnoresIrrelevantActions(t *testing.T) {
	t.Parallel()

	var actions []*action.Action
	for i := 0; i < 200; i++ {
		actions = append(actions, act(fmt.Sprintf("noise-%03d", i), 0.01, nil, map[string]condition.Determination{fmt.Sprintf("n%d", i): T}))
	}
	useful := act("useful", 3, nil, map[string]condition.Determination{"done": T})
	actions = append(actions, useful)

	plan, err := NewAStar(WithMaxExpansions(10)).PlanToGoal(context.Background(), Request{
		World:   world(nil),
		Actions: actions,
		Goal:    goalOf(map[string]condition.Determination{"done": T}),
	})
	if err != nil || plan == nil || plan.Head() != useful {
		t.Errorf("PlanToGoal() = %v, %v, want useful", plan, err)
	}
}
