// Package resilience provides resilient execution patterns using fortify.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// Executor wraps calls that block on I/O with bulkhead, timeout, circuit
// breaker and retry. It is generic over the call's result type so the same
// composition guards the oracle and the feed supplier.
type Executor[T any] struct {
	bulkhead bulkhead.Bulkhead[T]
	breaker  circuitbreaker.CircuitBreaker[T]
	retry    retry.Retry[T]
	attempts int
	timeout  time.Duration
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent calls.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failures before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts. One disables retry.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between retries.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// Timeout bounds each call, including retries.
	Timeout time.Duration
}

// DefaultExecutorConfig returns a configuration suited to a single-threaded
// round loop: one call at a time, no retry, a bounded timeout.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           1,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        1,
		RetryInitialDelay:       100 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		Timeout:                 10 * time.Second,
	}
}

// NewExecutor creates a new resilient executor.
func NewExecutor[T any](config ExecutorConfig) *Executor[T] {
	// Ensure non-negative values for uint32 conversion
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	threshold := config.CircuitBreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	attempts := config.RetryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	multiplier := config.RetryBackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}

	return &Executor[T]{
		bulkhead: bulkhead.New[T](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[T](circuitbreaker.Config{
			MaxRequests: uint32(maxConcurrent), // #nosec G115 -- bounds checked above
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		retry: retry.New[T](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    multiplier,
		}),
		attempts: attempts,
		timeout:  config.Timeout,
	}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor[T any]() *Executor[T] {
	return NewExecutor[T](DefaultExecutorConfig())
}

// Execute runs fn with resilience patterns applied.
// Composition order: Bulkhead → Timeout → Circuit Breaker → Retry
func (e *Executor[T]) Execute(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return e.bulkhead.Execute(ctx, func(ctx context.Context) (T, error) {
		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		return e.breaker.Execute(ctx, func(ctx context.Context) (T, error) {
			if e.attempts > 1 {
				return e.retry.Do(ctx, fn)
			}
			return fn(ctx)
		})
	})
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (e *Executor[T]) CircuitBreakerState() circuitbreaker.State {
	return e.breaker.State()
}

// Timeout returns the per-call timeout.
func (e *Executor[T]) Timeout() time.Duration {
	return e.timeout
}
