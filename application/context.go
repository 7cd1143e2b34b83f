package application

import (
	"time"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	"github.com/felixgeelhaar/agentsim/domain/population"
)

// TurnContext is what guards and actions see during one agent's turn.
// Actions may mutate the population through it; nothing else does.
type TurnContext struct {
	Agent      *agent.Runtime
	Population *population.State
	Round      int
	Items      []feed.Item
	Now        time.Time

	// Set by actions.
	PublishedPost string
	LikedPost     string
}

// HasCandidates reports whether the feed offered anything this turn.
func (tc *TurnContext) HasCandidates() bool {
	return len(tc.Items) > 0
}

// Turn identifies one agent's slot in a round.
type Turn struct {
	Agent      *agent.Runtime
	Population *population.State
	Round      int

	// Index is the agent's position in the round's turn order.
	Index int
}
