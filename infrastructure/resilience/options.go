package resilience

import (
	"time"

	domainconfig "github.com/felixgeelhaar/goap/domain/config"
)

// Option adjusts an ExecutorConfig. Non-positive values keep the current
// setting.
type Option func(*ExecutorConfig)

// WithMaxConcurrent bounds concurrent performer calls.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) {
		if n > 0 {
			c.MaxConcurrent = n
		}
	}
}

// WithCircuitBreaker opens the circuit after threshold consecutive failures
// and keeps it open for open.
func WithCircuitBreaker(threshold int, open time.Duration) Option {
	return func(c *ExecutorConfig) {
		if threshold > 0 {
			c.CircuitBreakerThreshold = threshold
		}
		if open > 0 {
			c.CircuitBreakerTimeout = open
		}
	}
}

// WithBackoffMultiplier scales the delay between declared retries.
func WithBackoffMultiplier(m float64) Option {
	return func(c *ExecutorConfig) {
		if m > 0 {
			c.RetryBackoffMultiplier = m
		}
	}
}

// FromConfig translates the resilience section of a process document.
func FromConfig(r domainconfig.ResilienceConfig) []Option {
	return []Option{
		WithMaxConcurrent(r.Bulkhead.MaxConcurrent),
		WithCircuitBreaker(r.CircuitBreaker.Threshold, r.CircuitBreaker.Timeout.Duration()),
		WithBackoffMultiplier(r.BackoffMultiplier),
	}
}

// NewExecutorWithOptions applies opts to DefaultExecutorConfig.
func NewExecutorWithOptions(opts ...Option) *Executor {
	config := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewExecutor(config)
}
