// Package observability exports process runs as OpenTelemetry spans and
// metrics.
package observability

import (
	"io"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	domainconfig "github.com/felixgeelhaar/goap/domain/config"
)

// Config selects the telemetry pipeline.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	Tracing TracingConfig
	Metrics MetricsConfig
}

// TracingConfig selects the span exporter and sampler.
type TracingConfig struct {
	Enabled  bool
	Exporter ExporterType

	// Endpoint is the OTLP collector address.
	Endpoint string
	Insecure bool

	// SampleRate is the ratio of root spans kept. Child spans follow their
	// parent's decision.
	SampleRate float64

	BatchTimeout       time.Duration
	MaxExportBatchSize int

	// Writer receives stdout exporter output. Nil means os.Stdout.
	Writer io.Writer
}

// MetricsConfig selects the meter provider.
type MetricsConfig struct {
	Enabled bool

	// Reader collects metrics. Nil installs a manual reader drained by
	// Provider.Collect.
	Reader sdkmetric.Reader
}

// ExporterType names a span exporter.
type ExporterType string

const (
	ExporterOTLP   ExporterType = "otlp"
	ExporterStdout ExporterType = "stdout"
	ExporterNoop   ExporterType = "noop"
)

// DefaultConfig keeps every span and exports nothing.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "goap",
		ServiceVersion: "dev",
		Environment:    "development",
		Tracing: TracingConfig{
			Exporter:           ExporterNoop,
			SampleRate:         1.0,
			BatchTimeout:       5 * time.Second,
			MaxExportBatchSize: 512,
		},
	}
}

// Option adjusts a Config.
type Option func(*Config)

// WithService sets the service name and version recorded on every span and
// metric. Empty values keep the current ones.
func WithService(name, version string) Option {
	return func(c *Config) {
		if name != "" {
			c.ServiceName = name
		}
		if version != "" {
			c.ServiceVersion = version
		}
	}
}

// WithEnvironment sets deployment.environment. Empty keeps the current one.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		if env != "" {
			c.Environment = env
		}
	}
}

// WithTracing enables span export through exporter.
func WithTracing(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = exporter
		c.Tracing.Endpoint = endpoint
	}
}

// WithOTLP exports spans to a gRPC collector. insecure dials without TLS.
func WithOTLP(endpoint string, insecure bool) Option {
	return func(c *Config) {
		WithTracing(ExporterOTLP, endpoint)(c)
		c.Tracing.Insecure = insecure
	}
}

// WithStdoutTracing writes pretty-printed spans to w.
func WithStdoutTracing(w io.Writer) Option {
	return func(c *Config) {
		WithTracing(ExporterStdout, "")(c)
		c.Tracing.Writer = w
	}
}

// WithSampleRate keeps the given ratio of root spans. Rates at or below zero
// drop every trace, rates at or above one keep every trace.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.Tracing.SampleRate = rate
	}
}

// WithMetrics enables the SDK meter provider. A nil reader installs a manual
// reader.
func WithMetrics(reader sdkmetric.Reader) Option {
	return func(c *Config) {
		c.Metrics.Enabled = true
		c.Metrics.Reader = reader
	}
}

// FromConfig translates the observability section of a process document.
// A zero sample_rate means unset and keeps every trace.
func FromConfig(cfg domainconfig.ObservabilityConfig, version string) []Option {
	opts := []Option{
		WithService(cfg.ServiceName, version),
		WithEnvironment(cfg.Environment),
	}
	if t := cfg.Tracing; t.Enabled {
		switch ExporterType(t.Exporter) {
		case ExporterOTLP:
			opts = append(opts, WithOTLP(t.Endpoint, t.Insecure))
		case "":
			opts = append(opts, WithStdoutTracing(nil))
		default:
			opts = append(opts, WithTracing(ExporterType(t.Exporter), t.Endpoint))
		}
		if t.SampleRate > 0 {
			opts = append(opts, WithSampleRate(t.SampleRate))
		}
	}
	if cfg.Metrics.OTel {
		opts = append(opts, WithMetrics(nil))
	}
	return opts
}
