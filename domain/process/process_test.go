package process

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/goap/domain/history"
	"github.com/felixgeelhaar/goap/domain/policy"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusCreated, StatusRunning, true},
		{StatusCreated, StatusCompleted, false},
		{StatusRunning, StatusRunning, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusStuck, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusTerminatedEarly, true},
		{StatusRunning, StatusCreated, false},
		{StatusCompleted, StatusRunning, false},
		{StatusFailed, StatusStuck, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}

	for _, s := range AllStatuses() {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false", s)
		}
	}
	if Status("PAUSED").IsValid() {
		t.Error("unknown status reported valid")
	}
	if StatusRunning.IsTerminal() || StatusCreated.IsTerminal() || !StatusStuck.IsTerminal() {
		t.Error("IsTerminal() mismatch")
	}
}

func TestProcess_Lifecycle(t *testing.T) {
	t.Parallel()

	p := New("proc-1", "publish", policy.Budget{Actions: 3})
	if p.Status != StatusCreated {
		t.Fatalf("Status = %s, want CREATED", p.Status)
	}
	if err := p.Record(history.Invocation{Action: "a"}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Record() before start error = %v, want ErrNotRunning", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Start() error = %v, want ErrInvalidTransition", err)
	}

	_ = p.Record(history.Invocation{Action: "search", Cost: 0.5, Tokens: 10, Progress: true})
	_ = p.Record(history.Invocation{Action: "write", Cost: 1, Progress: true})
	if u := p.Usage(); u.Actions != 2 || u.Cost != 1.5 || u.Tokens != 10 {
		t.Errorf("Usage() = %+v", u)
	}

	snap := p.Snapshot()
	if snap.ProcessID != "proc-1" || snap.Goal != "publish" || snap.Budget.Actions != 3 || snap.History.Len() != 2 {
		t.Errorf("Snapshot() = %+v", snap)
	}

	cause := errors.New("boom")
	term := Termination{Status: StatusFailed, Reason: "action write failed", LastAction: "write", PlanLength: 1}.WithError(cause)
	if err := p.Finish(term); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if !p.IsTerminal() || p.EndTime.IsZero() {
		t.Errorf("process not terminal after Finish: %+v", p)
	}
	if !errors.Is(p.Termination.Err(), cause) || p.Termination.Error != "boom" {
		t.Errorf("Termination.Err() = %v", p.Termination.Err())
	}
	if err := p.Finish(Termination{Status: StatusCompleted}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Finish() after terminal error = %v, want ErrInvalidTransition", err)
	}
	if err := p.Record(history.Invocation{Action: "late"}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Record() after terminal error = %v", err)
	}
}

func TestProcess_FinishRequiresTerminalStatus(t *testing.T) {
	t.Parallel()

	p := New("proc-2", "g", policy.DefaultBudget())
	_ = p.Start()
	if err := p.Finish(Termination{Status: StatusRunning}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Finish(RUNNING) error = %v, want ErrInvalidTransition", err)
	}
}

func TestTermination_ErrFromString(t *testing.T) {
	t.Parallel()

	var nilTerm *Termination
	if nilTerm.Err() != nil {
		t.Error("nil termination must have nil error")
	}
	restored := &Termination{Status: StatusFailed, Error: "disk full"}
	if err := restored.Err(); err == nil || err.Error() != "disk full" {
		t.Errorf("Err() = %v, want disk full", err)
	}
}

func TestProcess_Clone(t *testing.T) {
	t.Parallel()

	p := New("proc-3", "g", policy.DefaultBudget())
	_ = p.Start()
	_ = p.Record(history.Invocation{Action: "a", Bindings: []string{"x"}})
	_ = p.Finish(Termination{Status: StatusCompleted, Reason: "goal satisfied"})

	c := p.Clone()
	c.History[0].Action = "changed"
	c.Termination.Reason = "changed"
	if p.History[0].Action != "a" || p.Termination.Reason != "goal satisfied" {
		t.Error("Clone() shares state with original")
	}
}

func TestListFilter_Matches(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Process{ID: "p", Goal: "publish", Status: StatusStuck, CreatedAt: base}

	tests := []struct {
		name   string
		filter ListFilter
		want   bool
	}{
		{"empty", ListFilter{}, true},
		{"status match", ListFilter{Status: []Status{StatusFailed, StatusStuck}}, true},
		{"status miss", ListFilter{Status: []Status{StatusCompleted}}, false},
		{"goal miss", ListFilter{Goal: "other"}, false},
		{"from inclusive", ListFilter{FromTime: base}, true},
		{"to exclusive", ListFilter{ToTime: base}, false},
		{"window", ListFilter{FromTime: base.Add(-time.Hour), ToTime: base.Add(time.Hour)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.filter.Matches(p); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListFilter_Apply(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id string, offset time.Duration, status Status) *Process {
		p := New(id, "g", policy.DefaultBudget())
		p.CreatedAt = base.Add(offset)
		p.Status = status
		return p
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"created ascending", ListFilter{}, []string{"a", "b", "c"}},
		{"created descending", ListFilter{Descending: true}, []string{"c", "b", "a"}},
		{"by id", ListFilter{OrderBy: OrderByID}, []string{"a", "b", "c"}},
		{"by status", ListFilter{OrderBy: OrderByStatus}, []string{"b", "c", "a"}},
		{"offset and limit", ListFilter{Offset: 1, Limit: 1}, []string{"b"}},
		{"offset past end", ListFilter{Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ps := []*Process{
				mk("c", 2*time.Minute, StatusFailed),
				mk("a", 0, StatusStuck),
				mk("b", time.Minute, StatusCompleted),
			}
			got := tt.filter.Apply(ps)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Apply() = %v, want %v", ids, tt.want)
			}
		})
	}
}
