package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/goap/domain/history"
)

func snapshotWith(u Usage, h history.History) Snapshot {
	return Snapshot{ProcessID: "p", Goal: "g", Usage: u, History: h}
}

func TestBudget_Defaults(t *testing.T) {
	t.Parallel()

	b := DefaultBudget()
	if b.Cost != 2.0 || b.Actions != 50 || b.Tokens != 1_000_000 {
		t.Errorf("DefaultBudget() = %+v", b)
	}
	if b.IsZero() {
		t.Error("IsZero() = true for default budget")
	}
	if !(Budget{}).IsZero() {
		t.Error("IsZero() = false for empty budget")
	}
}

func TestBudget_Validate(t *testing.T) {
	t.Parallel()

	if err := (Budget{Cost: 1, Actions: 2}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (Budget{Actions: -1}).Validate(); !errors.Is(err, ErrInvalidBudget) {
		t.Errorf("Validate() error = %v, want ErrInvalidBudget", err)
	}
}

func TestBudget_Exhausted(t *testing.T) {
	t.Parallel()

	b := Budget{Cost: 1, Actions: 3}
	tests := []struct {
		name  string
		usage Usage
		want  []string
	}{
		{"fresh", Usage{}, nil},
		{"actions reached", Usage{Actions: 3}, []string{DimensionActions}},
		{"cost at ceiling", Usage{Cost: 1}, nil},
		{"both", Usage{Cost: 1.5, Actions: 4}, []string{DimensionCost, DimensionActions}},
		{"tokens unlimited", Usage{Tokens: 1 << 30}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := b.Exhausted(tt.usage)
			if len(got) != len(tt.want) {
				t.Fatalf("Exhausted() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Exhausted()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestUsage(t *testing.T) {
	t.Parallel()

	u := Usage{}.Add(0.5, 10).Add(0.25, 0)
	if u.Actions != 2 || u.Cost != 0.75 || u.Tokens != 10 {
		t.Errorf("Add() = %+v", u)
	}

	h := history.History{{Action: "a", Cost: 1, Tokens: 3}, {Action: "b", Cost: 2}}
	if got := UsageOf(h); got != (Usage{Cost: 3, Actions: 2, Tokens: 3}) {
		t.Errorf("UsageOf() = %+v", got)
	}
}

func TestEarlyTerminationPolicy(t *testing.T) {
	t.Parallel()

	p := Budget{Cost: 2, Actions: 3, Tokens: 100}.EarlyTerminationPolicy()

	tests := []struct {
		name       string
		usage      Usage
		terminate  bool
		policy     string
		dimension  string
		wantBudget bool
	}{
		{"under all ceilings", Usage{Cost: 1, Actions: 2, Tokens: 50}, false, "", "", false},
		{"cost at ceiling", Usage{Cost: 2}, false, "", "", false},
		{"cost", Usage{Cost: 2.5}, true, NameMaxCost, DimensionCost, true},
		{"actions", Usage{Actions: 3}, true, NameMaxActions, DimensionActions, true},
		{"tokens", Usage{Tokens: 100}, true, NameMaxTokens, DimensionTokens, true},
		{"cost fires first", Usage{Cost: 5, Actions: 5, Tokens: 500}, true, NameMaxCost, DimensionCost, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := p.Evaluate(snapshotWith(tt.usage, nil))
			if d.Terminate != tt.terminate {
				t.Fatalf("Evaluate().Terminate = %v, want %v", d.Terminate, tt.terminate)
			}
			if d.Policy != tt.policy || d.Dimension != tt.dimension {
				t.Errorf("Evaluate() = %+v, want policy %s dimension %s", d, tt.policy, tt.dimension)
			}
			if tt.wantBudget && !errors.Is(d.Err(), ErrBudgetExceeded) {
				t.Errorf("Err() = %v, want ErrBudgetExceeded", d.Err())
			}
			if !tt.terminate && d.Err() != nil {
				t.Errorf("Err() = %v, want nil", d.Err())
			}
		})
	}
}

func TestZeroCeilingsAreUnlimited(t *testing.T) {
	t.Parallel()

	p := Budget{Actions: 3}.EarlyTerminationPolicy()
	if d := p.Evaluate(snapshotWith(Usage{Cost: 1e9, Tokens: 1e9, Actions: 2}, nil)); d.Terminate {
		t.Errorf("Evaluate() = %+v, want continue", d)
	}
}

func TestNoProgress(t *testing.T) {
	t.Parallel()

	p := NoProgress(2)
	progressing := history.History{{Action: "a", Progress: true}, {Action: "b", Progress: false}}
	if d := p.Evaluate(snapshotWith(Usage{}, progressing)); d.Terminate {
		t.Errorf("Evaluate() = %+v, want continue", d)
	}
	stalled := append(progressing, history.Invocation{Action: "b", Progress: false})
	d := p.Evaluate(snapshotWith(Usage{}, stalled))
	if !d.Terminate || d.Policy != NameNoProgress {
		t.Errorf("Evaluate() = %+v, want no_progress", d)
	}
	if !errors.Is(d.Err(), ErrTerminatedEarly) {
		t.Errorf("Err() = %v, want ErrTerminatedEarly", d.Err())
	}
	if NoProgress(0).Name() != NameNever {
		t.Error("NoProgress(0) should never fire")
	}
}

func TestMaxDuration(t *testing.T) {
	t.Parallel()

	p := MaxDuration(time.Second)
	if d := p.Evaluate(Snapshot{Elapsed: 500 * time.Millisecond}); d.Terminate {
		t.Error("MaxDuration fired early")
	}
	if d := p.Evaluate(Snapshot{Elapsed: time.Second}); !d.Terminate || d.Policy != NameMaxDuration {
		t.Errorf("Evaluate() = %+v", d)
	}
}

func TestFirstOf(t *testing.T) {
	t.Parallel()

	calls := 0
	counting := Func("counting", func(Snapshot) (bool, string) {
		calls++
		return false, ""
	})
	stopper := Func("business_rule", func(s Snapshot) (bool, string) {
		return s.Goal == "g", "goal g is frozen"
	})
	never := Func("unreached", func(Snapshot) (bool, string) {
		t.Error("sub-policy after the firing one must not be consulted")
		return true, ""
	})

	p := FirstOf(counting, nil, stopper, never)
	d := p.Evaluate(snapshotWith(Usage{}, nil))
	if !d.Terminate || d.Policy != "business_rule" || d.Reason != "goal g is frozen" {
		t.Errorf("Evaluate() = %+v", d)
	}
	if calls != 1 {
		t.Errorf("counting policy called %d times, want 1", calls)
	}
	if p.Name() != NameFirstOf {
		t.Errorf("Name() = %s", p.Name())
	}
	if d := FirstOf().Evaluate(Snapshot{}); d.Terminate {
		t.Error("empty FirstOf must not fire")
	}
}

func TestAllOf(t *testing.T) {
	t.Parallel()

	p := AllOf(MaxActions(2), MaxCost(1))
	if d := p.Evaluate(snapshotWith(Usage{Actions: 2, Cost: 0.5}, nil)); d.Terminate {
		t.Errorf("AllOf fired with one sub-policy: %+v", d)
	}
	d := p.Evaluate(snapshotWith(Usage{Actions: 2, Cost: 1.5}, nil))
	if !d.Terminate || d.Policy != "max_actions+max_cost" {
		t.Errorf("Evaluate() = %+v", d)
	}
	if d := AllOf().Evaluate(Snapshot{}); d.Terminate {
		t.Error("empty AllOf must not fire")
	}
}

func TestNamed(t *testing.T) {
	t.Parallel()

	p := Named("hard_stop", MaxActions(1))
	d := p.Evaluate(snapshotWith(Usage{Actions: 1}, nil))
	if !d.Terminate || d.Policy != "hard_stop" || d.Dimension != DimensionActions {
		t.Errorf("Evaluate() = %+v", d)
	}
}

func TestPoliciesArePure(t *testing.T) {
	t.Parallel()

	h := history.History{{Action: "a", Progress: false}}
	s := snapshotWith(Usage{Actions: 1}, h)
	p := FirstOf(DefaultBudget().EarlyTerminationPolicy(), NoProgress(1))
	first := p.Evaluate(s)
	second := p.Evaluate(s)
	if first != second {
		t.Errorf("repeated evaluation differs: %+v vs %+v", first, second)
	}
	if len(h) != 1 || h[0].Progress {
		t.Error("policy mutated history")
	}
}

func TestFromSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec    Spec
		want    string
		wantErr bool
	}{
		{Spec{Name: NameMaxCost, Limit: 1}, NameMaxCost, false},
		{Spec{Name: NameMaxActions, Limit: 3}, NameMaxActions, false},
		{Spec{Name: NameMaxTokens, Limit: 10}, NameMaxTokens, false},
		{Spec{Name: NameNoProgress, Limit: 2}, NameNoProgress, false},
		{Spec{Name: NameMaxDuration, Duration: time.Minute}, NameMaxDuration, false},
		{Spec{Name: NameNever}, NameNever, false},
		{Spec{Name: "sometimes"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec.Name, func(t *testing.T) {
			t.Parallel()
			p, err := FromSpec(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromSpec() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrUnknownPolicy) {
					t.Errorf("FromSpec() error = %v, want ErrUnknownPolicy", err)
				}
				return
			}
			if p.Name() != tt.want {
				t.Errorf("Name() = %s, want %s", p.Name(), tt.want)
			}
		})
	}
}
