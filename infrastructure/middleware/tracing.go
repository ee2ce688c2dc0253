package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/middleware"
)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// TracerName is the name of the tracer to use.
	TracerName string

	// Tracer is a custom tracer to use. If nil, one is obtained from the global provider.
	Tracer trace.Tracer

	// SpanNamePrefix is prepended to span names.
	SpanNamePrefix string

	// AdditionalAttributes are added to all spans.
	AdditionalAttributes []attribute.KeyValue
}

// DefaultTracingConfig returns a sensible default configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		TracerName:     "goap",
		SpanNamePrefix: "action.",
	}
}

// Tracing returns middleware that creates OpenTelemetry spans for action executions.
func Tracing(cfg TracingConfig) middleware.Middleware {
	tracer := cfg.Tracer
	if tracer == nil {
		name := cfg.TracerName
		if name == "" {
			name = "goap"
		}
		tracer = otel.Tracer(name)
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, execCtx *middleware.ExecutionContext) (action.Result, error) {
			ctx, span := tracer.Start(ctx, cfg.SpanNamePrefix+execCtx.Action.Name(),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(ActionSpanAttributes(execCtx)...),
			)
			defer span.End()
			if len(cfg.AdditionalAttributes) > 0 {
				span.SetAttributes(cfg.AdditionalAttributes...)
			}

			result, err := next(ctx, execCtx)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return result, err
			}

			span.SetStatus(codes.Ok, "")
			span.SetAttributes(
				attribute.Int("action.bindings", len(result.Bindings)),
				attribute.Int("action.tokens", result.Tokens),
			)
			return result, nil
		}
	}
}

// TracingOption configures the tracing middleware.
type TracingOption func(*TracingConfig)

// WithTracer sets a custom tracer.
func WithTracer(tracer trace.Tracer) TracingOption {
	return func(c *TracingConfig) {
		c.Tracer = tracer
	}
}

// WithSpanNamePrefix sets the span name prefix.
func WithSpanNamePrefix(prefix string) TracingOption {
	return func(c *TracingConfig) {
		c.SpanNamePrefix = prefix
	}
}

// WithAdditionalAttributes adds extra attributes to all spans.
func WithAdditionalAttributes(attrs ...attribute.KeyValue) TracingOption {
	return func(c *TracingConfig) {
		c.AdditionalAttributes = append(c.AdditionalAttributes, attrs...)
	}
}

// NewTracing creates tracing middleware with the given options.
func NewTracing(opts ...TracingOption) middleware.Middleware {
	cfg := DefaultTracingConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return Tracing(cfg)
}

// ActionSpanAttributes returns standard attributes for an action span.
func ActionSpanAttributes(execCtx *middleware.ExecutionContext) []attribute.KeyValue {
	a := execCtx.Action
	return []attribute.KeyValue{
		attribute.String("process.id", execCtx.ProcessID),
		attribute.String("process.goal", execCtx.Goal),
		attribute.Int("process.step", execCtx.Step),
		attribute.Int("plan.length", execCtx.PlanLength),
		attribute.String("action.name", a.Name()),
		attribute.Float64("action.cost", a.Cost(execCtx.Blackboard)),
		attribute.Bool("action.can_rerun", a.CanRerun()),
	}
}
