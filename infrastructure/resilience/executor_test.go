package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultExecutorConfig(t *testing.T) {
	t.Parallel()

	config := DefaultExecutorConfig()
	if config.MaxConcurrent != 1 {
		t.Errorf("MaxConcurrent = %d, want 1", config.MaxConcurrent)
	}
	if config.RetryMaxAttempts != 1 {
		t.Errorf("RetryMaxAttempts = %d, want 1", config.RetryMaxAttempts)
	}
	if config.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", config.Timeout)
	}
}

func TestExecutor_InitialCircuitClosed(t *testing.T) {
	t.Parallel()

	e := NewDefaultExecutor[string]()
	if state := e.CircuitBreakerState(); state.String() != "closed" {
		t.Errorf("Initial CircuitBreakerState() = %v, want closed", state)
	}
}

func TestExecutor_Execute_Success(t *testing.T) {
	t.Parallel()

	e := NewDefaultExecutor[string]()
	got, err := e.Execute(context.Background(), func(context.Context) (string, error) {
		return "engaging", nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "engaging" {
		t.Errorf("Execute() = %s, want engaging", got)
	}
}

func TestExecutor_Execute_NoRetryByDefault(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	e := NewDefaultExecutor[int]()
	_, err := e.Execute(context.Background(), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("Execute() should return the error")
	}
	if calls.Load() != 1 {
		t.Errorf("fn called %d times, want 1", calls.Load())
	}
}

func TestExecutor_Execute_Retries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	e := NewExecutorWithOptions[int](WithRetry(3, time.Millisecond, 1))
	got, err := e.Execute(context.Background(), func(context.Context) (int, error) {
		if calls.Add(1) < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != 42 || calls.Load() != 3 {
		t.Errorf("Execute() = %d after %d calls, want 42 after 3", got, calls.Load())
	}
}

func TestExecutor_Execute_Timeout(t *testing.T) {
	t.Parallel()

	e := NewExecutorWithOptions[int](WithTimeout(20 * time.Millisecond))
	_, err := e.Execute(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v, want deadline exceeded", err)
	}
}

func TestExecutor_CircuitOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	e := NewExecutorWithOptions[int](WithCircuitBreaker(2, time.Minute))
	fail := func(context.Context) (int, error) { return 0, errors.New("down") }

	for i := 0; i < 2; i++ {
		_, _ = e.Execute(context.Background(), fail)
	}
	if state := e.CircuitBreakerState(); state.String() != "open" {
		t.Errorf("CircuitBreakerState() = %v, want open", state)
	}

	var called bool
	_, err := e.Execute(context.Background(), func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	if err == nil || called {
		t.Error("an open circuit should reject calls without invoking fn")
	}
}
