// Package metrics exposes process events as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/goap/domain/event"
)

// DefaultNamespace prefixes metric names when none is configured.
const DefaultNamespace = "goap"

// Collector is an event listener that maintains Prometheus metrics. It is
// itself a prometheus.Collector and can be registered directly.
type Collector struct {
	running        prometheus.Gauge
	started        prometheus.Counter
	terminated     *prometheus.CounterVec
	plans          *prometheus.CounterVec
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	cost           prometheus.Counter
	tokens         prometheus.Counter
}

// NewCollector creates a collector with metric names under namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Collector{
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes_running",
			Help:      "Processes started and not yet terminated.",
		}),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_started_total",
			Help:      "Processes started.",
		}),
		terminated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_terminated_total",
			Help:      "Processes terminated, by status and policy.",
		}, []string{"status", "policy"}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Planning calls, by whether a plan was found.",
		}, []string{"found"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions executed, by action and outcome.",
		}, []string{"action", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Duration of action executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		cost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_cost_total",
			Help:      "Declared cost of started actions.",
		}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Model tokens reported by actions.",
		}),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.running, c.started, c.terminated, c.plans,
		c.actions, c.actionDuration, c.cost, c.tokens,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, col := range c.collectors() {
		col.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, col := range c.collectors() {
		col.Collect(ch)
	}
}

// Handle implements event.Listener.
func (c *Collector) Handle(_ context.Context, e event.Event) {
	switch e.Type {
	case event.TypeProcessStarted:
		c.started.Inc()
		c.running.Inc()

	case event.TypePlanComputed:
		var p event.PlanComputedPayload
		if e.Decode(&p) != nil {
			return
		}
		found := "false"
		if p.Found {
			found = "true"
		}
		c.plans.WithLabelValues(found).Inc()

	case event.TypeActionStarted:
		var p event.ActionStartedPayload
		if e.Decode(&p) != nil {
			return
		}
		c.cost.Add(p.Cost)

	case event.TypeActionFinished:
		var p event.ActionFinishedPayload
		if e.Decode(&p) != nil {
			return
		}
		outcome := "success"
		if p.Error != "" {
			outcome = "error"
		}
		c.actions.WithLabelValues(p.Action, outcome).Inc()
		c.actionDuration.WithLabelValues(p.Action).Observe(p.Duration.Seconds())
		if p.Tokens > 0 {
			c.tokens.Add(float64(p.Tokens))
		}

	case event.TypeProcessTerminated:
		var p event.ProcessTerminatedPayload
		if e.Decode(&p) != nil {
			return
		}
		c.running.Dec()
		c.terminated.WithLabelValues(p.Status, p.Policy).Inc()
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var (
	_ event.Listener       = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)
