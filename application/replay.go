package application

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/domain/history"
	"github.com/felixgeelhaar/goap/domain/policy"
	"github.com/felixgeelhaar/goap/domain/process"
)

// Replay rebuilds processes from their recorded event streams.
type Replay struct {
	eventStore event.Store
}

// NewReplay creates a new replay engine.
func NewReplay(eventStore event.Store) *Replay {
	return &Replay{
		eventStore: eventStore,
	}
}

// ReconstructProcess rebuilds a process record from its event history.
// Binding values are not part of the stream, so only binding names are
// restored on the history.
func (r *Replay) ReconstructProcess(ctx context.Context, processID string) (*process.Process, error) {
	events, err := r.eventStore.LoadEvents(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return applyEvents(events)
}

func applyEvents(events []event.Event) (*process.Process, error) {
	var p *process.Process
	costs := make(map[int]float64)

	for _, e := range events {
		switch e.Type {
		case event.TypeProcessStarted:
			var payload event.ProcessStartedPayload
			if err := e.Decode(&payload); err != nil {
				return nil, fmt.Errorf("decode %s: %w", e.Type, err)
			}
			p = process.New(e.ProcessID, payload.Goal, policy.Budget{
				Cost:    payload.Budget.Cost,
				Actions: payload.Budget.Actions,
				Tokens:  payload.Budget.Tokens,
			})
			p.CreatedAt = e.Timestamp
			if err := p.Start(); err != nil {
				return nil, err
			}
			p.StartTime = e.Timestamp

		case event.TypeActionStarted:
			var payload event.ActionStartedPayload
			if err := e.Decode(&payload); err != nil {
				return nil, fmt.Errorf("decode %s: %w", e.Type, err)
			}
			costs[payload.Step] = payload.Cost

		case event.TypeActionFinished:
			if p == nil {
				continue
			}
			var payload event.ActionFinishedPayload
			if err := e.Decode(&payload); err != nil {
				return nil, fmt.Errorf("decode %s: %w", e.Type, err)
			}
			// Failed actions are not part of the history.
			if payload.Error != "" {
				continue
			}
			if err := p.Record(history.Invocation{
				Action:    payload.Action,
				Timestamp: e.Timestamp.Add(-payload.Duration),
				Cost:      costs[payload.Step],
				Tokens:    payload.Tokens,
				Duration:  payload.Duration,
				Bindings:  payload.Bindings,
				Progress:  payload.Progress,
			}); err != nil {
				return nil, err
			}

		case event.TypeProcessTerminated:
			if p == nil {
				continue
			}
			var payload event.ProcessTerminatedPayload
			if err := e.Decode(&payload); err != nil {
				return nil, fmt.Errorf("decode %s: %w", e.Type, err)
			}
			if err := p.Finish(process.Termination{
				Status:     process.Status(payload.Status),
				Reason:     payload.Reason,
				Policy:     payload.Policy,
				Dimension:  payload.Dimension,
				LastAction: payload.LastAction,
				PlanLength: payload.PlanLength,
				Error:      payload.Error,
				At:         e.Timestamp,
			}); err != nil {
				return nil, err
			}
		}
	}

	if p == nil {
		return nil, process.ErrProcessNotFound
	}
	return p, nil
}

// Timeline provides a time-based view of a process's events.
type Timeline struct {
	events []event.Event
}

// NewTimeline creates a timeline from the stored events of a process.
func (r *Replay) NewTimeline(ctx context.Context, processID string) (*Timeline, error) {
	events, err := r.eventStore.LoadEvents(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	return &Timeline{events: events}, nil
}

// Len returns the number of events.
func (tl *Timeline) Len() int {
	return len(tl.events)
}

// Events returns the events in sequence order.
func (tl *Timeline) Events() []event.Event {
	return append([]event.Event(nil), tl.events...)
}

// Duration returns the time between the first and last event.
func (tl *Timeline) Duration() time.Duration {
	if len(tl.events) < 2 {
		return 0
	}
	first := tl.events[0].Timestamp
	last := tl.events[len(tl.events)-1].Timestamp
	return last.Sub(first)
}

// EventsByType returns events of a specific type.
func (tl *Timeline) EventsByType(eventType event.Type) []event.Event {
	var result []event.Event
	for _, e := range tl.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// Step is one loop iteration as seen in the event stream.
type Step struct {
	Number   int
	Plan     []string
	Action   string
	Cost     float64
	Duration time.Duration
	Progress bool
	Error    string
}

// Steps pairs plans with the action executed in the same iteration.
func (tl *Timeline) Steps() []Step {
	var steps []Step
	index := make(map[int]int)

	at := func(n int) *Step {
		i, ok := index[n]
		if !ok {
			steps = append(steps, Step{Number: n})
			i = len(steps) - 1
			index[n] = i
		}
		return &steps[i]
	}

	for _, e := range tl.events {
		switch e.Type {
		case event.TypePlanComputed:
			var p event.PlanComputedPayload
			if e.Decode(&p) == nil {
				at(p.Step).Plan = p.Actions
			}
		case event.TypeActionStarted:
			var p event.ActionStartedPayload
			if e.Decode(&p) == nil {
				s := at(p.Step)
				s.Action = p.Action
				s.Cost = p.Cost
			}
		case event.TypeActionFinished:
			var p event.ActionFinishedPayload
			if e.Decode(&p) == nil {
				s := at(p.Step)
				s.Duration = p.Duration
				s.Progress = p.Progress
				s.Error = p.Error
			}
		}
	}
	return steps
}
