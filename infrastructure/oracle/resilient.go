package oracle

import (
	"context"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	domain "github.com/felixgeelhaar/agentsim/domain/oracle"
	"github.com/felixgeelhaar/agentsim/infrastructure/resilience"
)

// ResilientOracle guards an oracle with timeout, circuit breaker and retry.
type ResilientOracle struct {
	inner    domain.Oracle
	executor *resilience.Executor[agent.State]
}

// NewResilientOracle wraps inner with the given executor configuration.
func NewResilientOracle(inner domain.Oracle, config resilience.ExecutorConfig) *ResilientOracle {
	return &ResilientOracle{
		inner:    inner,
		executor: resilience.NewExecutor[agent.State](config),
	}
}

// Name returns the wrapped oracle's name.
func (r *ResilientOracle) Name() string {
	return r.inner.Name()
}

// Decide runs the wrapped oracle through the executor.
func (r *ResilientOracle) Decide(ctx context.Context, req domain.Request) (agent.State, error) {
	return r.executor.Execute(ctx, func(ctx context.Context) (agent.State, error) {
		return r.inner.Decide(ctx, req)
	})
}

// BreakerState reports the circuit breaker state.
func (r *ResilientOracle) BreakerState() string {
	return r.executor.CircuitBreakerState().String()
}
