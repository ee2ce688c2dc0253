package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/domain/history"
	"github.com/felixgeelhaar/goap/domain/middleware"
	"github.com/felixgeelhaar/goap/domain/policy"
	"github.com/felixgeelhaar/goap/domain/process"
	"github.com/felixgeelhaar/goap/infrastructure/logging"
	"github.com/felixgeelhaar/goap/infrastructure/planner"
	"github.com/felixgeelhaar/goap/infrastructure/statemachine"
)

// run is the state of one process while the engine drives it. It never
// escapes Run, so the blackboard has a single owner.
type run struct {
	engine  *Engine
	process *process.Process
	interp  *statemachine.Interpreter
	goal    *action.Goal
	bb      *blackboard.Blackboard
	policy  policy.Policy
	names   []string

	lastAction string
	planLength int
	seq        uint64
}

func (e *Engine) newRun(goal *action.Goal, rc runConfig) (*run, error) {
	p := process.New(rc.processID, goal.Name(), rc.budget)
	interp, err := statemachine.New(p)
	if err != nil {
		return nil, err
	}

	policies := []policy.Policy{rc.budget.EarlyTerminationPolicy()}
	if e.noProgressLimit > 0 {
		policies = append(policies, policy.NoProgress(e.noProgressLimit))
	}
	policies = append(policies, e.policies...)
	policies = append(policies, rc.policies...)

	return &run{
		engine:     e,
		process:    p,
		interp:     interp,
		goal:       goal,
		bb:         rc.blackboard,
		policy:     policy.FirstOf(policies...),
		names:      action.ConditionNames(e.actions, goal),
		planLength: -1,
	}, nil
}

func (r *run) start(ctx context.Context) error {
	if err := r.interp.Start(); err != nil {
		return fmt.Errorf("starting process: %w", err)
	}
	r.process.Bindings = r.bb.Entries()

	if store := r.engine.processes; store != nil {
		if err := store.Save(ctx, r.process.Clone()); err != nil {
			r.warn(err, "failed to save process")
		}
	}

	names := make([]string, len(r.engine.actions))
	for i, a := range r.engine.actions {
		names[i] = a.Name()
	}
	budget := r.process.Budget
	r.emit(ctx, event.TypeProcessStarted, event.ProcessStartedPayload{
		Goal:     r.goal.Name(),
		Actions:  names,
		Budget:   event.Budget{Cost: budget.Cost, Actions: budget.Actions, Tokens: budget.Tokens},
		Bindings: r.bb.Names(),
	})

	logging.Info().
		Add(logging.ProcessID(r.process.ID)).
		Add(logging.Goal(r.goal.Name())).
		Msg("process started")
	return nil
}

// step runs one iteration of the loop: derive, check, plan, execute the
// head action, observe.
func (r *run) step(ctx context.Context, step int) {
	ws := r.world()
	if r.goal.SatisfiedBy(ws) {
		r.finish(ctx, process.Termination{
			Status: process.StatusCompleted,
			Reason: "goal " + r.goal.Name() + " satisfied",
		})
		return
	}

	start := time.Now()
	plan, err := r.engine.planner.PlanToGoal(ctx, planner.Request{
		ProcessID:  r.process.ID,
		World:      ws,
		Actions:    r.candidates(),
		Goal:       r.goal,
		Blackboard: r.bb,
	})
	r.observePlan(ctx, step, ws, plan, time.Since(start))

	switch {
	case err != nil:
		r.finish(ctx, process.Termination{
			Status: process.StatusFailed,
			Reason: "planning failed",
		}.WithError(err))
	case plan == nil:
		r.planLength = -1
		r.finish(ctx, process.Termination{
			Status: process.StatusStuck,
			Reason: fmt.Sprintf("no plan to goal %s from %s", r.goal.Name(), ws),
		})
	case plan.IsComplete():
		r.planLength = 0
		r.finish(ctx, process.Termination{
			Status: process.StatusCompleted,
			Reason: "goal " + r.goal.Name() + " satisfied",
		})
	default:
		r.planLength = plan.Len()
		r.execute(ctx, step, plan, ws)
	}
}

// candidates returns the actions eligible for planning: rerunnable actions
// and those not yet run, pruned to the goal when configured.
func (r *run) candidates() []*action.Action {
	out := make([]*action.Action, 0, len(r.engine.actions))
	for _, a := range r.engine.actions {
		if !a.CanRerun() && r.process.History.Ran(a.Name()) {
			continue
		}
		out = append(out, a)
	}
	if r.engine.prune {
		out = action.Prune(out, r.goal)
	}
	return out
}

// execute runs only the head of plan, then merges its bindings, records it
// and consults the policy.
func (r *run) execute(ctx context.Context, step int, plan *action.Plan, before condition.WorldState) {
	head := plan.Head()
	cost := head.Cost(r.bb)
	r.lastAction = head.Name()

	r.emit(ctx, event.TypeActionStarted, event.ActionStartedPayload{
		Step:   step,
		Action: head.Name(),
		Cost:   cost,
	})

	execCtx := &middleware.ExecutionContext{
		ProcessID:  r.process.ID,
		Goal:       r.goal.Name(),
		Step:       step,
		Action:     head,
		PlanLength: plan.Len(),
		Blackboard: r.bb,
		Usage:      r.process.Usage(),
	}
	start := time.Now()
	result, err := r.engine.handler(ctx, execCtx)
	duration := time.Since(start)

	if err != nil {
		r.emit(ctx, event.TypeActionFinished, event.ActionFinishedPayload{
			Step:     step,
			Action:   head.Name(),
			Duration: duration,
			Error:    err.Error(),
		})
		r.finish(ctx, process.Termination{
			Status: process.StatusFailed,
			Reason: fmt.Sprintf("action %s failed", head.Name()),
		}.WithError(err))
		return
	}

	changed := r.bb.Merge(head.Name(), result.Bindings)
	after := r.world()
	progress := changed > 0 || !after.Equal(before) || !head.CanRerun()

	inv := history.Invocation{
		Action:    head.Name(),
		Timestamp: start,
		Cost:      cost,
		Tokens:    result.Tokens,
		Duration:  duration,
		Bindings:  result.Bindings.Names(),
		Progress:  progress,
	}
	if err := r.process.Record(inv); err != nil {
		r.finish(ctx, process.Termination{
			Status: process.StatusFailed,
			Reason: "recording action",
		}.WithError(err))
		return
	}
	r.process.Bindings = r.bb.Entries()

	r.emit(ctx, event.TypeActionFinished, event.ActionFinishedPayload{
		Step:     step,
		Action:   head.Name(),
		Duration: duration,
		Bindings: inv.Bindings,
		Tokens:   inv.Tokens,
		Progress: progress,
	})

	// A satisfied goal wins over a ceiling reached by the same step.
	if r.goal.SatisfiedBy(after) {
		r.finish(ctx, process.Termination{
			Status: process.StatusCompleted,
			Reason: "goal " + r.goal.Name() + " satisfied",
		})
		return
	}

	if d := r.policy.Evaluate(r.process.Snapshot()); d.Terminate {
		r.finish(ctx, process.Termination{
			Status:    process.StatusTerminatedEarly,
			Reason:    d.Reason,
			Policy:    d.Policy,
			Dimension: d.Dimension,
		})
	}
}

// finish moves the process to its terminal status, persists it and emits
// process.terminated. It runs even when ctx is already cancelled.
func (r *run) finish(ctx context.Context, t process.Termination) {
	ctx = context.WithoutCancel(ctx)

	t.LastAction = r.lastAction
	t.PlanLength = r.planLength
	r.process.Bindings = r.bb.Entries()

	if err := r.interp.Finish(t); err != nil {
		r.warn(err, "illegal process transition")
		return
	}

	if store := r.engine.processes; store != nil {
		if err := store.Update(ctx, r.process.Clone()); err != nil {
			r.warn(err, "failed to update process")
		}
	}

	usage := r.process.Usage()
	r.emit(ctx, event.TypeProcessTerminated, event.ProcessTerminatedPayload{
		Status:     string(t.Status),
		Reason:     t.Reason,
		Policy:     t.Policy,
		Dimension:  t.Dimension,
		LastAction: t.LastAction,
		PlanLength: t.PlanLength,
		Actions:    usage.Actions,
		Cost:       usage.Cost,
		Tokens:     usage.Tokens,
		Duration:   r.process.Duration(),
		Error:      t.Error,
	})

	entry := logging.Info()
	if t.Status == process.StatusFailed {
		entry = logging.Error().Add(logging.ErrorField(t.Err()))
	}
	entry.
		Add(logging.ProcessID(r.process.ID)).
		Add(logging.Status(t.Status)).
		Add(logging.Reason(t.Reason)).
		Add(logging.PolicyName(t.Policy)).
		Add(logging.Cost(usage.Cost)).
		Add(logging.Duration(r.process.Duration())).
		Msg("process terminated")
}

func (r *run) observePlan(ctx context.Context, step int, ws condition.WorldState, plan *action.Plan, d time.Duration) {
	payload := event.PlanComputedPayload{
		Step:       step,
		Found:      plan != nil,
		WorldState: make(map[string]string, ws.Len()),
		Duration:   d,
	}
	for name, v := range ws.Map() {
		payload.WorldState[name] = v.String()
	}
	rendered := "<none>"
	length := -1
	if plan != nil {
		payload.Actions = plan.Names()
		payload.Cost = plan.Cost
		rendered = strings.Join(plan.Names(), " -> ")
		length = plan.Len()
	}
	r.emit(ctx, event.TypePlanComputed, payload)

	entry := logging.Debug()
	if r.engine.showPlanning {
		entry = logging.Info().Add(logging.WorldState(ws.String()))
	}
	entry.
		Add(logging.ProcessID(r.process.ID)).
		Add(logging.Step(step)).
		Add(logging.Plan(rendered, length)).
		Msg("plan computed")
}

func (r *run) world() condition.WorldState {
	return condition.Derive(r.engine.determiner, r.bb, r.names)
}

// emit numbers and delivers an event to the listeners.
func (r *run) emit(ctx context.Context, typ event.Type, payload any) {
	if len(r.engine.listeners) == 0 {
		return
	}
	e, err := event.New(r.process.ID, typ, payload)
	if err != nil {
		r.warn(err, "failed to encode event")
		return
	}
	r.seq++
	e.ID = uuid.NewString()
	e.Sequence = r.seq
	r.engine.listeners.Handle(ctx, e)
}

func (r *run) warn(err error, msg string) {
	logging.Warn().
		Add(logging.ProcessID(r.process.ID)).
		Add(logging.ErrorField(err)).
		Msg(msg)
}
