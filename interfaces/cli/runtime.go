package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/goap/application"
	domainconfig "github.com/felixgeelhaar/goap/domain/config"
	"github.com/felixgeelhaar/goap/domain/event"
	infraconfig "github.com/felixgeelhaar/goap/infrastructure/config"
	infraevent "github.com/felixgeelhaar/goap/infrastructure/event"
	"github.com/felixgeelhaar/goap/infrastructure/logging"
	natsmsg "github.com/felixgeelhaar/goap/infrastructure/messaging/nats"
	"github.com/felixgeelhaar/goap/infrastructure/metrics"
	"github.com/felixgeelhaar/goap/infrastructure/notification"
	"github.com/felixgeelhaar/goap/infrastructure/observability"
	"github.com/felixgeelhaar/goap/infrastructure/storage"
)

// eventBufferSize batches event store writes during a run. The buffer is
// flushed when a process terminates.
const eventBufferSize = 64

// loadConfig loads, validates and builds the configuration at path.
func (a *App) loadConfig(path string, strict bool) (*domainconfig.Config, *infraconfig.BuildResult, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("configuration file path is required (-c flag)")
	}

	loader := infraconfig.NewLoader(
		infraconfig.WithValidation(true),
		infraconfig.WithStrictEnv(strict),
	)
	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	result, err := infraconfig.NewBuilder(cfg).Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build configuration: %w", err)
	}
	return cfg, result, nil
}

// initLogging installs the default logger described by the document, then
// applies the --log-level flag on top of it.
func (a *App) initLogging(cfg domainconfig.LoggingConfig) error {
	if err := logging.Init(logging.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: a.stderr,
	}); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if a.logLevel == "" {
		return nil
	}
	if err := logging.SetLevel(a.logLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	return nil
}

// runtime holds the collaborators a configured engine reports to.
type runtime struct {
	stores    *storage.Stores
	provider  *observability.Provider
	registry  *prometheus.Registry
	tracer    trace.Tracer
	listeners []event.Listener
	closers   []func(context.Context) error
}

// openRuntime opens storage, telemetry and messaging as configured.
func openRuntime(ctx context.Context, cfg *domainconfig.Config) (*runtime, error) {
	rt := &runtime{}

	stores, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	rt.stores = stores
	rt.closers = append(rt.closers, func(context.Context) error { return stores.Close() })

	provider, err := observability.New(observability.FromConfig(cfg.Observability, Version)...)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("observability: %w", err)
	}
	rt.provider = provider
	rt.closers = append(rt.closers, provider.Shutdown)

	if cfg.Observability.Tracing.Enabled {
		rt.tracer = provider.Tracer()
		rt.listeners = append(rt.listeners, observability.NewSpanListener(rt.tracer))
	}
	if cfg.Observability.Metrics.OTel {
		l, err := observability.NewMetricsListener(provider.Meter())
		if err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("observability: %w", err)
		}
		rt.listeners = append(rt.listeners, l)
	}
	if cfg.Observability.Metrics.Prometheus {
		collector := metrics.NewCollector(cfg.Observability.Metrics.Namespace)
		rt.registry = prometheus.NewRegistry()
		if err := rt.registry.Register(collector); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("metrics: %w", err)
		}
		rt.listeners = append(rt.listeners, collector)
	}

	if n := cfg.Messaging.NATS; n.Enabled {
		conn, err := natsmsg.Connect(n.URL, "goap")
		if err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("nats: %w", err)
		}
		var natsOpts []natsmsg.Option
		if n.SubjectPrefix != "" {
			natsOpts = append(natsOpts, natsmsg.WithSubjectPrefix(n.SubjectPrefix))
		}
		pub := natsmsg.NewPublisher(conn, natsOpts...)
		rt.listeners = append(rt.listeners, pub)
		rt.closers = append(rt.closers, func(context.Context) error { return pub.Close() })
	}

	for _, w := range cfg.Messaging.Webhooks {
		n, err := newWebhook(w)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("webhook: %w", err)
		}
		rt.listeners = append(rt.listeners, n)
		rt.closers = append(rt.closers, func(context.Context) error { return n.Close() })
	}

	if stores.Events != nil {
		pub := infraevent.NewPublisher(stores.Events, infraevent.WithBufferSize(eventBufferSize))
		rt.listeners = append(rt.listeners, pub)
		rt.closers = append(rt.closers, func(context.Context) error { return pub.Close() })
	}

	return rt, nil
}

// newWebhook builds one notifier per declared webhook so each keeps its
// own timeout and attempt count.
func newWebhook(w domainconfig.WebhookConfig) (*notification.Notifier, error) {
	ep := notification.Endpoint{
		Name:    w.Name,
		URL:     w.URL,
		Secret:  w.Secret,
		Headers: w.Headers,
	}
	for _, name := range w.Events {
		ep.Events = append(ep.Events, event.Type(name))
	}
	sc := notification.DefaultSenderConfig()
	if w.Timeout > 0 {
		sc.Timeout = time.Duration(w.Timeout)
	}
	if w.MaxAttempts > 0 {
		sc.MaxAttempts = w.MaxAttempts
	}
	return notification.NewNotifier([]notification.Endpoint{ep}, notification.WithSenderConfig(sc))
}

// engineOptions returns the engine options for result wired to the runtime.
func (rt *runtime) engineOptions(result *infraconfig.BuildResult) []application.Option {
	opts := application.FromConfig(result)
	opts = append(opts, application.WithListeners(rt.listeners...))
	if rt.stores.Processes != nil {
		opts = append(opts, application.WithProcessStore(rt.stores.Processes))
	}
	if rt.tracer != nil {
		opts = append(opts, application.WithTracer(rt.tracer))
	}
	return opts
}

// serveMetrics exposes the Prometheus registry on addr until the runtime
// is closed.
func (rt *runtime) serveMetrics(addr string) error {
	if rt.registry == nil {
		return fmt.Errorf("--metrics-addr requires observability.metrics.prometheus")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(rt.registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().
				Add(logging.Component("metrics")).
				Add(logging.ErrorField(err)).
				Msg("metrics server stopped")
		}
	}()
	rt.closers = append(rt.closers, srv.Shutdown)
	return nil
}

// Close releases everything in reverse order of opening.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
