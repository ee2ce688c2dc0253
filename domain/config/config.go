// Package config provides domain models for goap configuration documents.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/goap/domain/condition"
)

// Config represents a complete goap configuration document: how processes
// run and, optionally, a declarative domain of actions and goals.
type Config struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`
	// Description describes the domain.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Process       ProcessSettings     `json:"process,omitempty" yaml:"process,omitempty"`
	Budget        BudgetConfig        `json:"budget,omitempty" yaml:"budget,omitempty"`
	Policies      []PolicyConfig      `json:"policies,omitempty" yaml:"policies,omitempty"`
	Resilience    ResilienceConfig    `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	Storage       StorageConfig       `json:"storage,omitempty" yaml:"storage,omitempty"`
	Observability ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"`
	Messaging     MessagingConfig     `json:"messaging,omitempty" yaml:"messaging,omitempty"`
	Logging       LoggingConfig       `json:"logging,omitempty" yaml:"logging,omitempty"`
	Domain        DomainConfig        `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// ProcessSettings controls the process loop.
type ProcessSettings struct {
	// Goal is the default goal name when none is given.
	Goal string `json:"goal,omitempty" yaml:"goal,omitempty"`
	// MaxSteps is the hard step ceiling. Zero selects the engine default.
	MaxSteps int `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	// Planner selects the planner type (astar, goap, utility).
	Planner string `json:"planner,omitempty" yaml:"planner,omitempty"`
	// Prune removes actions that cannot contribute to the goal before planning.
	Prune bool `json:"prune,omitempty" yaml:"prune,omitempty"`
	// OperationDelay pauses before each action (none, medium, long).
	OperationDelay string `json:"operation_delay,omitempty" yaml:"operation_delay,omitempty"`
	// ShowPlanning logs every computed plan at info level.
	ShowPlanning bool `json:"show_planning,omitempty" yaml:"show_planning,omitempty"`
	// ActionTimeout bounds actions that declare no timeout of their own.
	ActionTimeout Duration `json:"action_timeout,omitempty" yaml:"action_timeout,omitempty"`
}

// BudgetConfig sets the three budget ceilings. Nil fields keep the defaults.
type BudgetConfig struct {
	Cost    *float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
	Actions *int     `json:"actions,omitempty" yaml:"actions,omitempty"`
	Tokens  *int     `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

// PolicyConfig adds an early-termination policy alongside the budget.
type PolicyConfig struct {
	// Name is the policy name (max_cost, max_actions, max_tokens, max_duration, no_progress, never).
	Name string `json:"name" yaml:"name"`
	// Limit is the numeric ceiling for count and cost policies.
	Limit float64 `json:"limit,omitempty" yaml:"limit,omitempty"`
	// Duration is the ceiling for max_duration.
	Duration Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ResilienceConfig contains resilience settings for action execution.
type ResilienceConfig struct {
	// Enabled routes actions through the resilient executor.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// Bulkhead configures bulkhead behavior.
	Bulkhead BulkheadConfig `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
	// BackoffMultiplier is the backoff multiplier for declared retries.
	BackoffMultiplier float64 `json:"backoff_multiplier,omitempty" yaml:"backoff_multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Threshold is consecutive failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// BulkheadConfig configures bulkhead behavior.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum concurrent executions.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
}

// Storage backend types.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
	StorageMongoDB  = "mongodb"
	StorageBadger   = "badger"
	StorageDynamoDB = "dynamodb"
)

// StorageConfig selects persistence for process records and events.
type StorageConfig struct {
	Processes BackendConfig `json:"processes,omitempty" yaml:"processes,omitempty"`
	Events    BackendConfig `json:"events,omitempty" yaml:"events,omitempty"`
}

// BackendConfig configures one storage backend. Empty Type disables it.
type BackendConfig struct {
	// Type is the backend (memory, sqlite, postgres, redis, mongodb, dynamodb, badger).
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// DSN is the connection string or file path.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Database names the database for document stores.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	// Region is the cloud region of hosted stores.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Prefix namespaces keys, tables or collections.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// TTL expires records in stores that support it.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// Timeout bounds each store operation (redis, mongodb, dynamodb).
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxConns caps the connection pool (sqlite, postgres, redis, mongodb).
	MaxConns int `json:"max_conns,omitempty" yaml:"max_conns,omitempty"`
	// ConnMaxLifetime recycles pooled sql connections.
	ConnMaxLifetime Duration `json:"conn_max_lifetime,omitempty" yaml:"conn_max_lifetime,omitempty"`

	// JournalMode is the sqlite journal mode.
	JournalMode string `json:"journal_mode,omitempty" yaml:"journal_mode,omitempty"`
	// BusyTimeout is how long sqlite waits on a locked database.
	BusyTimeout Duration `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"`

	// SyncWrites fsyncs every badger append.
	SyncWrites bool `json:"sync_writes,omitempty" yaml:"sync_writes,omitempty"`
}

// journalModes are the sqlite journal modes.
var journalModes = map[string]bool{
	"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true,
}

// ObservabilityConfig configures tracing and metrics.
type ObservabilityConfig struct {
	// ServiceName identifies this service in telemetry.
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	// Environment is recorded as deployment.environment on every span.
	Environment string        `json:"environment,omitempty" yaml:"environment,omitempty"`
	Tracing     TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	Metrics     MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Exporter is stdout or otlp.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP collector endpoint.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS for the OTLP exporter.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is the fraction of traces sampled (0 to 1).
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// MetricsConfig configures metric collection.
type MetricsConfig struct {
	// OTel records metrics through the OpenTelemetry meter provider.
	OTel bool `json:"otel,omitempty" yaml:"otel,omitempty"`
	// Prometheus registers collectors with a Prometheus registry.
	Prometheus bool `json:"prometheus,omitempty" yaml:"prometheus,omitempty"`
	// Namespace prefixes Prometheus metric names.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// MessagingConfig configures event fan-out.
type MessagingConfig struct {
	NATS     NATSConfig      `json:"nats,omitempty" yaml:"nats,omitempty"`
	Webhooks []WebhookConfig `json:"webhooks,omitempty" yaml:"webhooks,omitempty"`
}

// WebhookConfig declares an HTTP endpoint that receives observation events.
type WebhookConfig struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	URL  string `json:"url" yaml:"url"`
	// Secret signs request bodies with HMAC-SHA256 when set.
	Secret  string            `json:"secret,omitempty" yaml:"secret,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	// Events limits delivery to these event types. Empty means
	// process.terminated only.
	Events      []string `json:"events,omitempty" yaml:"events,omitempty"`
	Timeout     Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxAttempts int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
}

// NATSConfig configures publishing observation events to NATS.
type NATSConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	// SubjectPrefix precedes the process ID in subjects.
	SubjectPrefix string `json:"subject_prefix,omitempty" yaml:"subject_prefix,omitempty"`
}

// LoggingConfig configures the default logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// DomainConfig declares actions, goals and the initial blackboard.
type DomainConfig struct {
	// Bindings seed the blackboard.
	Bindings map[string]any `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	// Conditions set explicit condition values on the blackboard.
	Conditions map[string]bool `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Actions    []ActionConfig  `json:"actions,omitempty" yaml:"actions,omitempty"`
	Goals      []GoalConfig    `json:"goals,omitempty" yaml:"goals,omitempty"`
}

// ActionConfig declares an action. Its performer binds Bindings and reports
// Tokens, or fails with Fail when set.
type ActionConfig struct {
	Name          string                    `json:"name" yaml:"name"`
	Description   string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Preconditions map[string]ConditionValue `json:"pre,omitempty" yaml:"pre,omitempty"`
	Effects       map[string]ConditionValue `json:"effects" yaml:"effects"`
	Cost          float64                   `json:"cost,omitempty" yaml:"cost,omitempty"`
	Value         float64                   `json:"value,omitempty" yaml:"value,omitempty"`
	CanRerun      bool                      `json:"can_rerun,omitempty" yaml:"can_rerun,omitempty"`
	Timeout       Duration                  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retry         RetryConfig               `json:"retry,omitempty" yaml:"retry,omitempty"`
	Bindings      map[string]any            `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	Tokens        int                       `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	Fail          string                    `json:"fail,omitempty" yaml:"fail,omitempty"`
}

// RetryConfig declares an action's own retry policy.
type RetryConfig struct {
	MaxAttempts  int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
}

// GoalConfig declares a goal.
type GoalConfig struct {
	Name          string                    `json:"name" yaml:"name"`
	Description   string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Preconditions map[string]ConditionValue `json:"pre" yaml:"pre"`
	Value         float64                   `json:"value,omitempty" yaml:"value,omitempty"`
}

// ConditionValue is a determination written as a bool or as one of
// "true", "false" and "unknown".
type ConditionValue condition.Determination

// Determination returns the underlying determination.
func (c ConditionValue) Determination() condition.Determination {
	return condition.Determination(c)
}

func (c *ConditionValue) set(raw any) error {
	switch v := raw.(type) {
	case bool:
		*c = ConditionValue(condition.FromBool(v))
		return nil
	case string:
		d, err := condition.Parse(v)
		if err != nil {
			return err
		}
		*c = ConditionValue(d)
		return nil
	case nil:
		*c = ConditionValue(condition.Unknown)
		return nil
	default:
		return fmt.Errorf("%w: %v", condition.ErrInvalidDetermination, raw)
	}
}

// MarshalJSON implements json.Marshaler.
func (c ConditionValue) MarshalJSON() ([]byte, error) {
	switch condition.Determination(c) {
	case condition.True:
		return []byte("true"), nil
	case condition.False:
		return []byte("false"), nil
	default:
		return []byte(`"unknown"`), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ConditionValue) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return c.set(raw)
}

// MarshalYAML implements yaml.Marshaler.
func (c ConditionValue) MarshalYAML() (any, error) {
	switch condition.Determination(c) {
	case condition.True:
		return true, nil
	case condition.False:
		return false, nil
	default:
		return "unknown", nil
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *ConditionValue) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return c.set(raw)
}

// Conditions converts a declared condition map.
func Conditions(m map[string]ConditionValue) map[string]condition.Determination {
	out := make(map[string]condition.Determination, len(m))
	for k, v := range m {
		out[k] = v.Determination()
	}
	return out
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
