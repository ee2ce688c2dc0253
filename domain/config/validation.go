package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/domain/policy"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the dotted path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates goap configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateProcess(config)
	v.validateBudget(config)
	v.validatePolicies(config)
	v.validateResilience(config)
	v.validateStorage(config)
	v.validateObservability(config)
	v.validateMessaging(config)
	v.validateLogging(config)
	v.validateDomain(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *Config) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateProcess(config *Config) {
	p := config.Process
	if p.MaxSteps < 0 {
		v.addError("process.max_steps", "max_steps must be non-negative")
	}
	switch p.Planner {
	case "", "astar", "goap", "utility":
	default:
		v.addError("process.planner", fmt.Sprintf("unknown planner: %s", p.Planner))
	}
	switch p.OperationDelay {
	case "", "none", "medium", "long":
	default:
		v.addError("process.operation_delay", fmt.Sprintf("invalid delay: %s", p.OperationDelay))
	}
	if p.ActionTimeout < 0 {
		v.addError("process.action_timeout", "action_timeout must be non-negative")
	}
	if p.Goal != "" && len(config.Domain.Goals) > 0 && !hasGoal(config.Domain.Goals, p.Goal) {
		v.addError("process.goal", fmt.Sprintf("goal %s is not declared", p.Goal))
	}
}

func (v *Validator) validateBudget(config *Config) {
	b := config.Budget
	if b.Cost != nil && *b.Cost < 0 {
		v.addError("budget.cost", "cost must be non-negative")
	}
	if b.Actions != nil && *b.Actions < 0 {
		v.addError("budget.actions", "actions must be non-negative")
	}
	if b.Tokens != nil && *b.Tokens < 0 {
		v.addError("budget.tokens", "tokens must be non-negative")
	}
}

func (v *Validator) validatePolicies(config *Config) {
	for i, p := range config.Policies {
		path := fmt.Sprintf("policies[%d]", i)
		if p.Name == "" {
			v.addError(path+".name", "policy name is required")
			continue
		}
		if _, err := policy.FromSpec(policy.Spec{Name: p.Name}); err != nil {
			v.addError(path+".name", fmt.Sprintf("unknown policy: %s", p.Name))
			continue
		}
		if p.Limit < 0 {
			v.addError(path+".limit", "limit must be non-negative")
		}
		if p.Name == policy.NameMaxDuration && p.Duration <= 0 {
			v.addError(path+".duration", "duration must be positive")
		}
	}
}

func (v *Validator) validateResilience(config *Config) {
	r := config.Resilience
	if !r.Enabled {
		return
	}
	if r.CircuitBreaker.Threshold < 0 {
		v.addError("resilience.circuit_breaker.threshold", "threshold must be non-negative")
	}
	if r.Bulkhead.MaxConcurrent < 0 {
		v.addError("resilience.bulkhead.max_concurrent", "max_concurrent must be non-negative")
	}
	if r.BackoffMultiplier != 0 && r.BackoffMultiplier < 1 {
		v.addError("resilience.backoff_multiplier", "backoff_multiplier must be >= 1")
	}
}

func (v *Validator) validateStorage(config *Config) {
	procs := config.Storage.Processes
	switch procs.Type {
	case "", StorageMemory, StorageDynamoDB:
	case StorageSQLite, StoragePostgres, StorageRedis, StorageMongoDB:
		if procs.DSN == "" {
			v.addError("storage.processes.dsn", fmt.Sprintf("dsn is required for %s", procs.Type))
		}
	default:
		v.addError("storage.processes.type", fmt.Sprintf("unsupported process store: %s", procs.Type))
	}

	events := config.Storage.Events
	switch events.Type {
	case "", StorageMemory:
	case StorageSQLite, StoragePostgres, StorageBadger:
		if events.DSN == "" {
			v.addError("storage.events.dsn", fmt.Sprintf("dsn is required for %s", events.Type))
		}
	default:
		v.addError("storage.events.type", fmt.Sprintf("unsupported event store: %s", events.Type))
	}

	v.validateBackend("storage.processes", procs)
	v.validateBackend("storage.events", events)
}

func (v *Validator) validateBackend(path string, b BackendConfig) {
	if b.MaxConns < 0 {
		v.addError(path+".max_conns", "max_conns must not be negative")
	}
	if b.Timeout < 0 || b.ConnMaxLifetime < 0 || b.BusyTimeout < 0 || b.TTL < 0 {
		v.addError(path, "durations must not be negative")
	}
	if b.JournalMode != "" && !journalModes[strings.ToUpper(b.JournalMode)] {
		v.addError(path+".journal_mode", fmt.Sprintf("unknown journal mode: %s", b.JournalMode))
	}
}

func (v *Validator) validateObservability(config *Config) {
	t := config.Observability.Tracing
	if !t.Enabled {
		return
	}
	switch t.Exporter {
	case "", "stdout":
	case "otlp":
		if t.Endpoint == "" {
			v.addError("observability.tracing.endpoint", "endpoint is required for otlp")
		}
	default:
		v.addError("observability.tracing.exporter", fmt.Sprintf("unknown exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("observability.tracing.sample_rate", "sample_rate must be between 0 and 1")
	}
}

func (v *Validator) validateMessaging(config *Config) {
	if config.Messaging.NATS.Enabled && config.Messaging.NATS.URL == "" {
		v.addError("messaging.nats.url", "url is required when nats is enabled")
	}
	for i, w := range config.Messaging.Webhooks {
		path := fmt.Sprintf("messaging.webhooks[%d]", i)
		if w.URL == "" {
			v.addError(path+".url", "url is required")
		} else if u, err := url.Parse(w.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			v.addError(path+".url", fmt.Sprintf("invalid url: %s", w.URL))
		}
		for _, name := range w.Events {
			if !event.Type(name).Valid() {
				v.addError(path+".events", fmt.Sprintf("unknown event type: %s", name))
			}
		}
		if w.MaxAttempts < 0 {
			v.addError(path+".max_attempts", "max_attempts must be non-negative")
		}
	}
}

func (v *Validator) validateLogging(config *Config) {
	switch strings.ToLower(config.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "", "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
	}
}

func (v *Validator) validateDomain(config *Config) {
	seen := make(map[string]bool, len(config.Domain.Actions))
	for i, a := range config.Domain.Actions {
		path := fmt.Sprintf("domain.actions[%d]", i)
		if a.Name == "" {
			v.addError(path+".name", "action name is required")
		} else if seen[a.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate action: %s", a.Name))
		}
		seen[a.Name] = true
		if len(a.Effects) == 0 {
			v.addError(path+".effects", "at least one effect is required")
		}
		if a.Cost < 0 {
			v.addError(path+".cost", "cost must be non-negative")
		}
		if a.Tokens < 0 {
			v.addError(path+".tokens", "tokens must be non-negative")
		}
		if a.Timeout < 0 {
			v.addError(path+".timeout", "timeout must be non-negative")
		}
		if a.Retry.MaxAttempts < 0 {
			v.addError(path+".retry.max_attempts", "max_attempts must be non-negative")
		}
	}

	goals := make(map[string]bool, len(config.Domain.Goals))
	for i, g := range config.Domain.Goals {
		path := fmt.Sprintf("domain.goals[%d]", i)
		if g.Name == "" {
			v.addError(path+".name", "goal name is required")
		} else if goals[g.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate goal: %s", g.Name))
		}
		goals[g.Name] = true
		if len(g.Preconditions) == 0 {
			v.addError(path+".pre", "at least one precondition is required")
		}
	}
}

func hasGoal(goals []GoalConfig, name string) bool {
	for _, g := range goals {
		if g.Name == name {
			return true
		}
	}
	return false
}
