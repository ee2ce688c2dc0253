package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/felixgeelhaar/goap/domain/event"
)

// Metric names recorded by MetricsListener.
const (
	MetricProcessesStarted    = "goap.processes.started"
	MetricProcessesTerminated = "goap.processes.terminated"
	MetricPlans               = "goap.plans"
	MetricPlanLength          = "goap.plan.length"
	MetricActions             = "goap.actions"
	MetricActionDuration      = "goap.action.duration"
	MetricActionCost          = "goap.action.cost"
	MetricTokens              = "goap.tokens"
)

// MetricsListener records process events as OpenTelemetry metrics.
type MetricsListener struct {
	started        metric.Int64Counter
	terminated     metric.Int64Counter
	plans          metric.Int64Counter
	planLength     metric.Int64Histogram
	actions        metric.Int64Counter
	actionDuration metric.Float64Histogram
	actionCost     metric.Float64Counter
	tokens         metric.Int64Counter
}

// NewMetricsListener creates the instruments on meter.
func NewMetricsListener(meter metric.Meter) (*MetricsListener, error) {
	var errs []error
	track := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	l := &MetricsListener{}
	var err error

	l.started, err = meter.Int64Counter(MetricProcessesStarted,
		metric.WithDescription("Processes started"), metric.WithUnit("{process}"))
	track(err)
	l.terminated, err = meter.Int64Counter(MetricProcessesTerminated,
		metric.WithDescription("Processes terminated, by status and policy"), metric.WithUnit("{process}"))
	track(err)
	l.plans, err = meter.Int64Counter(MetricPlans,
		metric.WithDescription("Planning calls, by outcome"), metric.WithUnit("{plan}"))
	track(err)
	l.planLength, err = meter.Int64Histogram(MetricPlanLength,
		metric.WithDescription("Length of computed plans"), metric.WithUnit("{action}"))
	track(err)
	l.actions, err = meter.Int64Counter(MetricActions,
		metric.WithDescription("Actions executed, by outcome"), metric.WithUnit("{action}"))
	track(err)
	l.actionDuration, err = meter.Float64Histogram(MetricActionDuration,
		metric.WithDescription("Duration of action executions"), metric.WithUnit("s"))
	track(err)
	l.actionCost, err = meter.Float64Counter(MetricActionCost,
		metric.WithDescription("Declared cost of started actions"))
	track(err)
	l.tokens, err = meter.Int64Counter(MetricTokens,
		metric.WithDescription("Model tokens reported by actions"), metric.WithUnit("{token}"))
	track(err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return l, nil
}

// Handle implements event.Listener.
func (l *MetricsListener) Handle(ctx context.Context, e event.Event) {
	switch e.Type {
	case event.TypeProcessStarted:
		l.started.Add(ctx, 1)

	case event.TypePlanComputed:
		var p event.PlanComputedPayload
		if e.Decode(&p) != nil {
			return
		}
		l.plans.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", p.Found)))
		if p.Found {
			l.planLength.Record(ctx, int64(len(p.Actions)))
		}

	case event.TypeActionStarted:
		var p event.ActionStartedPayload
		if e.Decode(&p) != nil {
			return
		}
		l.actionCost.Add(ctx, p.Cost, metric.WithAttributes(attribute.String("action", p.Action)))

	case event.TypeActionFinished:
		var p event.ActionFinishedPayload
		if e.Decode(&p) != nil {
			return
		}
		outcome := "success"
		if p.Error != "" {
			outcome = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("action", p.Action),
			attribute.String("outcome", outcome),
		)
		l.actions.Add(ctx, 1, attrs)
		l.actionDuration.Record(ctx, p.Duration.Seconds(), attrs)
		if p.Tokens > 0 {
			l.tokens.Add(ctx, int64(p.Tokens), metric.WithAttributes(attribute.String("action", p.Action)))
		}

	case event.TypeProcessTerminated:
		var p event.ProcessTerminatedPayload
		if e.Decode(&p) != nil {
			return
		}
		l.terminated.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", p.Status),
			attribute.String("policy", p.Policy),
		))
	}
}

var _ event.Listener = (*MetricsListener)(nil)
