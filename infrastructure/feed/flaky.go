package feed

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/feed"
)

// Flaky wraps a supplier and fails every Nth fetch of the simulation. It is
// used to exercise the skipped-turn policy.
//
// Fetches are numbered from the round and turn position in the view, so a
// resumed simulation fails exactly the turns an uninterrupted one would.
type Flaky struct {
	inner feed.Supplier
	every int
}

// NewFlaky fails every nth fetch made through inner. n < 1 never fails.
func NewFlaky(inner feed.Supplier, n int) *Flaky {
	return &Flaky{inner: inner, every: n}
}

// Candidates implements feed.Supplier.
func (f *Flaky) Candidates(ctx context.Context, agentID string, view feed.View) ([]feed.Item, error) {
	if seq := Sequence(view); f.every > 0 && seq%f.every == 0 {
		return nil, fmt.Errorf("%w: injected failure on fetch %d for %s", feed.ErrSupplierUnavailable, seq, agentID)
	}
	return f.inner.Candidates(ctx, agentID, view)
}

// Sequence returns the 1-based number of the fetch described by view,
// counting every turn of every earlier round.
func Sequence(view feed.View) int {
	agents := view.Agents
	if agents < 1 {
		agents = 1
	}
	round := view.Round
	if round < 1 {
		round = 1
	}
	return (round-1)*agents + view.Turn + 1
}
