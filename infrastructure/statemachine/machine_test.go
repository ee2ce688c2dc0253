package statemachine

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/goap/domain/policy"
	"github.com/felixgeelhaar/goap/domain/process"
)

func newRunning(t *testing.T) (*Interpreter, *process.Process) {
	t.Helper()
	p := process.New("p-1", "ship", policy.DefaultBudget())
	interp, err := New(p)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := interp.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return interp, p
}

func TestNewProcessMachine(t *testing.T) {
	t.Parallel()

	machine, err := NewProcessMachine()
	if err != nil {
		t.Fatalf("NewProcessMachine() error = %v", err)
	}
	if machine == nil {
		t.Fatal("NewProcessMachine() returned nil machine")
	}
}

func TestInterpreter_Start(t *testing.T) {
	t.Parallel()

	interp, p := newRunning(t)
	if p.Status != process.StatusRunning {
		t.Errorf("Status = %s, want RUNNING", p.Status)
	}
	if interp.State() != process.StatusRunning {
		t.Errorf("State() = %s, want RUNNING", interp.State())
	}
	if p.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
	if interp.IsTerminal() {
		t.Error("IsTerminal() = true, want false")
	}
}

func TestInterpreter_Finish(t *testing.T) {
	t.Parallel()

	for _, status := range []process.Status{
		process.StatusCompleted,
		process.StatusStuck,
		process.StatusFailed,
		process.StatusTerminatedEarly,
	} {
		t.Run(status.String(), func(t *testing.T) {
			t.Parallel()

			interp, p := newRunning(t)
			err := interp.Finish(process.Termination{Status: status, Reason: "done", LastAction: "a", PlanLength: 1})
			if err != nil {
				t.Fatalf("Finish() error = %v", err)
			}
			if p.Status != status {
				t.Errorf("Status = %s, want %s", p.Status, status)
			}
			if !interp.Matches(status) {
				t.Errorf("Matches(%s) = false", status)
			}
			if !interp.IsTerminal() {
				t.Error("IsTerminal() = false, want true")
			}
			if p.Termination == nil || p.Termination.LastAction != "a" {
				t.Errorf("Termination = %+v, want last action a", p.Termination)
			}
		})
	}
}

func TestInterpreter_FinishTwice(t *testing.T) {
	t.Parallel()

	interp, p := newRunning(t)
	if err := interp.Finish(process.Termination{Status: process.StatusCompleted}); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	err := interp.Finish(process.Termination{Status: process.StatusFailed})
	if !errors.Is(err, process.ErrInvalidTransition) {
		t.Errorf("second Finish() error = %v, want ErrInvalidTransition", err)
	}
	if p.Status != process.StatusCompleted {
		t.Errorf("Status = %s, want COMPLETED", p.Status)
	}
}

func TestInterpreter_FinishNonTerminal(t *testing.T) {
	t.Parallel()

	interp, _ := newRunning(t)
	if err := interp.Finish(process.Termination{Status: process.StatusRunning}); !errors.Is(err, process.ErrInvalidTransition) {
		t.Errorf("Finish(RUNNING) error = %v, want ErrInvalidTransition", err)
	}
}

func TestEventFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status process.Status
		want   string
	}{
		{process.StatusRunning, "START"},
		{process.StatusCompleted, "COMPLETE"},
		{process.StatusStuck, "STICK"},
		{process.StatusFailed, "FAIL"},
		{process.StatusTerminatedEarly, "TERMINATE"},
		{process.Status("custom"), "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			t.Parallel()
			event := EventFor(tt.status)
			if string(event) != tt.want {
				t.Errorf("EventFor(%s) = %s, want %s", tt.status, event, tt.want)
			}
			if tt.status != "custom" && StatusFor(event) != tt.status {
				t.Errorf("StatusFor(%s) = %s, want %s", event, StatusFor(event), tt.status)
			}
		})
	}
}
