package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/feed"
	"github.com/felixgeelhaar/agentsim/infrastructure/resilience"
)

// Resilient guards a supplier with the resilient executor. Every failure
// it returns wraps feed.ErrSupplierUnavailable.
type Resilient struct {
	inner    feed.Supplier
	executor *resilience.Executor[[]feed.Item]
}

// NewResilient wraps inner.
func NewResilient(inner feed.Supplier, config resilience.ExecutorConfig) *Resilient {
	return &Resilient{
		inner:    inner,
		executor: resilience.NewExecutor[[]feed.Item](config),
	}
}

// Candidates implements feed.Supplier.
func (r *Resilient) Candidates(ctx context.Context, agentID string, view feed.View) ([]feed.Item, error) {
	items, err := r.executor.Execute(ctx, func(ctx context.Context) ([]feed.Item, error) {
		return r.inner.Candidates(ctx, agentID, view)
	})
	if err != nil {
		if errors.Is(err, feed.ErrSupplierUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", feed.ErrSupplierUnavailable, err)
	}
	return items, nil
}
