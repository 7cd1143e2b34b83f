package oracle

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/agent"
)

// Resolution is the outcome of consulting an oracle.
type Resolution struct {
	// Target is the chosen state.
	Target agent.State

	// Fallback is true when Target is the first candidate because the
	// oracle failed.
	Fallback bool

	// Reason explains the fallback. It wraps ErrAmbiguityResolution.
	Reason error

	// Oracle is the name of the consulted oracle.
	Oracle string
}

// Resolve consults o and applies the fallback policy. An error, a panic,
// an expired context or an answer outside the candidates all yield the
// first candidate. Resolve itself never fails.
func Resolve(ctx context.Context, o Oracle, req Request) (res Resolution) {
	res.Oracle = o.Name()
	if len(req.Candidates) == 0 {
		res.Fallback = true
		res.Reason = fmt.Errorf("%w: %w", ErrAmbiguityResolution, ErrNoCandidates)
		return res
	}
	fallback := func(cause error) Resolution {
		return Resolution{
			Target:   req.Candidates[0],
			Fallback: true,
			Reason:   fmt.Errorf("%w: %w", ErrAmbiguityResolution, cause),
			Oracle:   res.Oracle,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			res = fallback(fmt.Errorf("%w: %v", ErrOraclePanic, r))
		}
	}()

	target, err := o.Decide(ctx, req)
	if err != nil {
		return fallback(err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fallback(ctxErr)
	}
	if !req.Contains(target) {
		return fallback(fmt.Errorf("%w: %q", ErrInvalidAnswer, target))
	}
	res.Target = target
	return res
}
