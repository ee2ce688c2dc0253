package observability

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/domain/process"
)

// SpanListener turns a process event stream into spans: one root span per
// process and one child span per action.
type SpanListener struct {
	tracer trace.Tracer

	mu        sync.Mutex
	processes map[string]*processSpans
}

type processSpans struct {
	root   trace.Span
	ctx    context.Context
	action trace.Span
}

// NewSpanListener creates a span listener using tracer.
func NewSpanListener(tracer trace.Tracer) *SpanListener {
	return &SpanListener{
		tracer:    tracer,
		processes: make(map[string]*processSpans),
	}
}

// Handle implements event.Listener.
func (l *SpanListener) Handle(ctx context.Context, e event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch e.Type {
	case event.TypeProcessStarted:
		var p event.ProcessStartedPayload
		_ = e.Decode(&p)
		spanCtx, span := l.tracer.Start(ctx, "goap.process",
			trace.WithTimestamp(e.Timestamp),
			trace.WithAttributes(
				attribute.String("process.id", e.ProcessID),
				attribute.String("process.goal", p.Goal),
				attribute.Int("process.actions", len(p.Actions)),
				attribute.Float64("budget.cost", p.Budget.Cost),
				attribute.Int("budget.actions", p.Budget.Actions),
				attribute.Int("budget.tokens", p.Budget.Tokens),
			),
		)
		l.processes[e.ProcessID] = &processSpans{root: span, ctx: spanCtx}

	case event.TypePlanComputed:
		ps := l.processes[e.ProcessID]
		if ps == nil {
			return
		}
		var p event.PlanComputedPayload
		_ = e.Decode(&p)
		ps.root.AddEvent("plan.computed", trace.WithTimestamp(e.Timestamp), trace.WithAttributes(
			attribute.Int("process.step", p.Step),
			attribute.Bool("plan.found", p.Found),
			attribute.String("plan.actions", strings.Join(p.Actions, " -> ")),
			attribute.Float64("plan.cost", p.Cost),
		))

	case event.TypeActionStarted:
		ps := l.processes[e.ProcessID]
		if ps == nil {
			return
		}
		var p event.ActionStartedPayload
		_ = e.Decode(&p)
		_, span := l.tracer.Start(ps.ctx, "action."+p.Action,
			trace.WithTimestamp(e.Timestamp),
			trace.WithAttributes(
				attribute.String("action.name", p.Action),
				attribute.Int("process.step", p.Step),
				attribute.Float64("action.cost", p.Cost),
			),
		)
		ps.action = span

	case event.TypeActionFinished:
		ps := l.processes[e.ProcessID]
		if ps == nil || ps.action == nil {
			return
		}
		var p event.ActionFinishedPayload
		_ = e.Decode(&p)
		ps.action.SetAttributes(
			attribute.Bool("action.progress", p.Progress),
			attribute.Int("action.tokens", p.Tokens),
			attribute.StringSlice("action.bindings", p.Bindings),
		)
		if p.Error != "" {
			ps.action.SetStatus(codes.Error, p.Error)
		} else {
			ps.action.SetStatus(codes.Ok, "")
		}
		ps.action.End(trace.WithTimestamp(e.Timestamp))
		ps.action = nil

	case event.TypeProcessTerminated:
		ps := l.processes[e.ProcessID]
		if ps == nil {
			return
		}
		delete(l.processes, e.ProcessID)
		var p event.ProcessTerminatedPayload
		_ = e.Decode(&p)
		if ps.action != nil {
			ps.action.End(trace.WithTimestamp(e.Timestamp))
		}
		ps.root.SetAttributes(
			attribute.String("process.status", p.Status),
			attribute.String("process.reason", p.Reason),
			attribute.String("process.policy", p.Policy),
			attribute.String("process.last_action", p.LastAction),
			attribute.Int("process.plan_length", p.PlanLength),
			attribute.Int("usage.actions", p.Actions),
			attribute.Float64("usage.cost", p.Cost),
			attribute.Int("usage.tokens", p.Tokens),
		)
		if p.Status == string(process.StatusFailed) {
			ps.root.SetStatus(codes.Error, p.Error)
		} else {
			ps.root.SetStatus(codes.Ok, "")
		}
		ps.root.End(trace.WithTimestamp(e.Timestamp))
	}
}

// Open returns the number of processes with an unfinished root span.
func (l *SpanListener) Open() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.processes)
}

var _ event.Listener = (*SpanListener)(nil)
