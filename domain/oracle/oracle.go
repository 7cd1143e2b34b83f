// Package oracle defines the decision oracle that disambiguates transitions
// with more than one valid target.
package oracle

import (
	"context"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/feed"
)

// Oracle chooses one target from a list of candidates.
type Oracle interface {
	// Decide returns the chosen target. It may block on I/O and must honor ctx.
	Decide(ctx context.Context, req Request) (agent.State, error)

	// Name identifies the oracle in logs and the decision log.
	Name() string
}

// Request carries everything an oracle may consider.
type Request struct {
	AgentID             string        `json:"agentId"`
	Round               int           `json:"round"`
	Current             agent.State   `json:"current"`
	Trigger             string        `json:"trigger"`
	Candidates          []agent.State `json:"candidates"`
	Items               []feed.Item   `json:"items,omitempty"`
	EngagementThreshold float64       `json:"engagementThreshold"`
	TicksInState        int           `json:"ticksInState"`
}

// Contains reports whether s is one of the request's candidates.
func (r Request) Contains(s agent.State) bool {
	for _, c := range r.Candidates {
		if c == s {
			return true
		}
	}
	return false
}

// Func adapts a function to the Oracle interface.
type Func struct {
	ID string
	Fn func(ctx context.Context, req Request) (agent.State, error)
}

// Decide calls the wrapped function.
func (f Func) Decide(ctx context.Context, req Request) (agent.State, error) {
	return f.Fn(ctx, req)
}

// Name returns the configured identifier.
func (f Func) Name() string {
	return f.ID
}
