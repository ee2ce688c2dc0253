// Package process provides the process aggregate: one goal-directed run of
// plan, act and observe steps over a private blackboard.
package process

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/history"
	"github.com/felixgeelhaar/goap/domain/policy"
)

// Termination describes how a process ended.
type Termination struct {
	Status Status `json:"status"`
	// Reason is a human-readable explanation.
	Reason string `json:"reason"`
	// Policy names the early-termination policy that fired, if any.
	Policy string `json:"policy,omitempty"`
	// Dimension names the exhausted budget dimension, if any.
	Dimension string `json:"dimension,omitempty"`
	// LastAction is the last action attempted.
	LastAction string `json:"last_action,omitempty"`
	// PlanLength is the length of the last computed plan, or -1 when none was found.
	PlanLength int       `json:"plan_length"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`

	err error
}

// Err returns the underlying error for failed processes.
func (t *Termination) Err() error {
	if t == nil {
		return nil
	}
	if t.err != nil {
		return t.err
	}
	if t.Error != "" {
		return errors.New(t.Error)
	}
	return nil
}

// WithError attaches the underlying error.
func (t Termination) WithError(err error) Termination {
	t.err = err
	if err != nil {
		t.Error = err.Error()
	}
	return t
}

// Process is the aggregate root for one goal-directed run.
type Process struct {
	ID          string             `json:"id"`
	Goal        string             `json:"goal"`
	Status      Status             `json:"status"`
	Budget      policy.Budget      `json:"budget"`
	History     history.History    `json:"history"`
	Bindings    []blackboard.Entry `json:"bindings,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	StartTime   time.Time          `json:"start_time,omitempty"`
	EndTime     time.Time          `json:"end_time,omitempty"`
	Termination *Termination       `json:"termination,omitempty"`
}

// New creates a process in the CREATED status.
func New(id, goal string, budget policy.Budget) *Process {
	return &Process{
		ID:        id,
		Goal:      goal,
		Status:    StatusCreated,
		Budget:    budget,
		History:   make(history.History, 0),
		CreatedAt: time.Now(),
	}
}

// Start moves the process to RUNNING.
func (p *Process) Start() error {
	if !p.Status.CanTransitionTo(StatusRunning) || p.Status == StatusRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, StatusRunning)
	}
	p.Status = StatusRunning
	p.StartTime = time.Now()
	return nil
}

// Record appends an executed action to the history.
func (p *Process) Record(inv history.Invocation) error {
	if p.Status != StatusRunning {
		return fmt.Errorf("%w: %s", ErrNotRunning, p.Status)
	}
	p.History = append(p.History, inv)
	return nil
}

// Finish moves a running process to a terminal status.
func (p *Process) Finish(t Termination) error {
	if !t.Status.IsTerminal() || !p.Status.CanTransitionTo(t.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, t.Status)
	}
	if t.At.IsZero() {
		t.At = time.Now()
	}
	p.Status = t.Status
	p.EndTime = t.At
	p.Termination = &t
	return nil
}

// IsTerminal reports whether the process has ended.
func (p *Process) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// Usage returns cumulative consumption.
func (p *Process) Usage() policy.Usage {
	return policy.UsageOf(p.History)
}

// Duration returns how long the process has been running.
func (p *Process) Duration() time.Duration {
	if p.StartTime.IsZero() {
		return 0
	}
	if p.EndTime.IsZero() {
		return time.Since(p.StartTime)
	}
	return p.EndTime.Sub(p.StartTime)
}

// Snapshot returns the view early-termination policies evaluate.
func (p *Process) Snapshot() policy.Snapshot {
	return policy.Snapshot{
		ProcessID: p.ID,
		Goal:      p.Goal,
		History:   p.History.Clone(),
		Usage:     p.Usage(),
		Budget:    p.Budget,
		Elapsed:   p.Duration(),
	}
}

// Clone returns a deep copy suitable for handing to stores.
func (p *Process) Clone() *Process {
	c := *p
	c.History = p.History.Clone()
	if p.Bindings != nil {
		c.Bindings = make([]blackboard.Entry, len(p.Bindings))
		copy(c.Bindings, p.Bindings)
	}
	if p.Termination != nil {
		t := *p.Termination
		c.Termination = &t
	}
	return &c
}
