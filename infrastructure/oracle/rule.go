package oracle

import (
	"context"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	domain "github.com/felixgeelhaar/agentsim/domain/oracle"
)

// RuleOracle is a deterministic oracle driven by the agent's feed.
//
// It engages when the best item reaches the agent's engagement threshold.
// Otherwise the feed has nothing worth reacting to and the agent composes
// its own post. Browsing is the answer only when neither engaging nor
// composing is offered, and the first candidate when browsing is not
// offered either.
type RuleOracle struct{}

// NewRuleOracle creates a rule oracle.
func NewRuleOracle() *RuleOracle {
	return &RuleOracle{}
}

// Name returns "rule".
func (RuleOracle) Name() string {
	return "rule"
}

// Decide implements the domain oracle.
func (RuleOracle) Decide(_ context.Context, req domain.Request) (agent.State, error) {
	if len(req.Candidates) == 0 {
		return "", domain.ErrNoCandidates
	}
	if top, ok := feed.Top(req.Items); ok && top.Score >= req.EngagementThreshold && req.Contains(agent.StateEngaging) {
		return agent.StateEngaging, nil
	}
	if req.Contains(agent.StateComposing) {
		return agent.StateComposing, nil
	}
	if req.Contains(agent.StateBrowsing) {
		return agent.StateBrowsing, nil
	}
	return req.Candidates[0], nil
}
