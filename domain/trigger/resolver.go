// Package trigger maps an agent's situation to the trigger proposed to the statechart.
package trigger

import (
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/agent"
)

// RoundContext is the read-only view of the round a rule sees.
type RoundContext struct {
	// Round is the 1-based round number.
	Round int

	// CandidateCount is the number of feed items fetched for the agent.
	CandidateCount int
}

// Rule picks a trigger for an agent that has not timed out.
type Rule func(rc RoundContext) string

// Fixed returns a rule that always yields name.
func Fixed(name string) Rule {
	return func(RoundContext) string { return name }
}

// ByCandidates returns a rule yielding found when candidates exist and empty otherwise.
func ByCandidates(found, empty string) Rule {
	return func(rc RoundContext) string {
		if rc.CandidateCount > 0 {
			return found
		}
		return empty
	}
}

// Resolver is a pure mapping from (runtime, round context) to a trigger name.
type Resolver struct {
	timeout string
	rules   map[agent.State]Rule
}

// NewResolver builds a resolver. Every declared state must have a rule.
func NewResolver(states []agent.State, timeoutTrigger string, rules map[agent.State]Rule) (*Resolver, error) {
	if timeoutTrigger == "" {
		return nil, ErrEmptyTimeoutTrigger
	}
	copied := make(map[agent.State]Rule, len(rules))
	for _, s := range states {
		r, ok := rules[s]
		if !ok || r == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnmappedState, s)
		}
		copied[s] = r
	}
	return &Resolver{timeout: timeoutTrigger, rules: copied}, nil
}

// TimeoutTrigger returns the trigger emitted for timed-out agents.
func (r *Resolver) TimeoutTrigger() string {
	return r.timeout
}

// Resolve returns the timeout trigger whenever the agent has timed out,
// regardless of the state's rule. Otherwise the state's rule decides.
func (r *Resolver) Resolve(rt *agent.Runtime, rc RoundContext) string {
	if rt.IsTimedOut() {
		return r.timeout
	}
	rule, ok := r.rules[rt.CurrentState()]
	if !ok {
		// Unreachable for runtimes holding a declared state.
		return r.timeout
	}
	return rule(rc)
}
