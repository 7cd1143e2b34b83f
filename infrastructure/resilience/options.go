package resilience

import "time"

// Option configures the executor.
type Option func(*ExecutorConfig)

// WithMaxConcurrent sets the maximum concurrent executions.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) {
		c.MaxConcurrent = n
	}
}

// WithCircuitBreaker sets the failure threshold and open duration.
func WithCircuitBreaker(threshold int, open time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerThreshold = threshold
		c.CircuitBreakerTimeout = open
	}
}

// WithRetry sets the attempt count, initial delay and backoff multiplier.
func WithRetry(attempts int, delay time.Duration, multiplier float64) Option {
	return func(c *ExecutorConfig) {
		c.RetryMaxAttempts = attempts
		c.RetryInitialDelay = delay
		c.RetryBackoffMultiplier = multiplier
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.Timeout = d
	}
}

// NewExecutorWithOptions creates an executor with the given options.
func NewExecutorWithOptions[T any](opts ...Option) *Executor[T] {
	config := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewExecutor[T](config)
}
