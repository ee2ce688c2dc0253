// Package resilience provides resilient action execution using fortify.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
)

// Executor runs action performers behind a bulkhead and a circuit breaker.
// Retries happen only for actions that declare their own retry policy.
type Executor struct {
	bulkhead   bulkhead.Bulkhead[action.Result]
	breaker    circuitbreaker.CircuitBreaker[action.Result]
	multiplier float64
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent performer executions.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failures before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier for
	// actions that declare retries.
	RetryBackoffMultiplier float64
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryBackoffMultiplier:  2.0,
	}
}

// NewExecutor creates a new resilient executor.
func NewExecutor(config ExecutorConfig) *Executor {
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	threshold := config.CircuitBreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	multiplier := config.RetryBackoffMultiplier
	if multiplier < 1 {
		multiplier = 2.0
	}

	return &Executor{
		bulkhead: bulkhead.New[action.Result](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[action.Result](circuitbreaker.Config{
			MaxRequests: uint32(maxConcurrent), // #nosec G115 -- bounds checked above
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		multiplier: multiplier,
	}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultExecutorConfig())
}

// Execute performs a with resilience patterns applied.
func (e *Executor) Execute(ctx context.Context, a *action.Action, bb *blackboard.Blackboard) (action.Result, error) {
	return e.Run(ctx, a, func(ctx context.Context) (action.Result, error) {
		return a.Perform(ctx, bb)
	})
}

// Run executes fn on behalf of a.
// Composition order: Bulkhead → Circuit Breaker → Retry (declared only).
func (e *Executor) Run(ctx context.Context, a *action.Action, fn func(context.Context) (action.Result, error)) (action.Result, error) {
	return e.bulkhead.Execute(ctx, func(ctx context.Context) (action.Result, error) {
		return e.breaker.Execute(ctx, func(ctx context.Context) (action.Result, error) {
			policy := a.Retry()
			if policy.MaxAttempts <= 1 {
				return fn(ctx)
			}
			r := retry.New[action.Result](retry.Config{
				MaxAttempts:   policy.MaxAttempts,
				InitialDelay:  policy.InitialDelay,
				BackoffPolicy: retry.BackoffExponential,
				Multiplier:    e.multiplier,
			})
			return r.Do(ctx, fn)
		})
	})
}

// ExecuteSimple performs a without resilience patterns.
func (e *Executor) ExecuteSimple(ctx context.Context, a *action.Action, bb *blackboard.Blackboard) (action.Result, error) {
	return a.Perform(ctx, bb)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (e *Executor) CircuitBreakerState() circuitbreaker.State {
	return e.breaker.State()
}
