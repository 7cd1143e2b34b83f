package application

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	"github.com/felixgeelhaar/agentsim/domain/population"
	"github.com/felixgeelhaar/agentsim/domain/statechart"
	"github.com/felixgeelhaar/agentsim/domain/trigger"
	"github.com/felixgeelhaar/agentsim/infrastructure/logging"
)

// Trigger names used by the default model.
const (
	TriggerStartBrowsing = "startBrowsing"
	TriggerItemsFound    = "itemsFound"
	TriggerFeedEmpty     = "feedEmpty"
	TriggerDecides       = "decides"
	TriggerPublished     = "published"
	TriggerReacted       = "reacted"
	TriggerWake          = "wake"
	TriggerTimeout       = "timeout"
)

// Action names used by the default model.
const (
	ActionPublishPost = "publishPost"
	ActionLikeTopItem = "likeTopItem"
)

// ErrNothingToLike is returned by the like action when the feed is empty.
var ErrNothingToLike = errors.New("no item to like")

// Model couples the transition table with the trigger resolver.
type Model struct {
	Engine   *statechart.Engine[*TurnContext]
	Resolver *trigger.Resolver
}

// NewModel validates the table and rules once. A malformed table or an
// unmapped state is fatal here and nowhere else.
func NewModel(transitions []statechart.Transition[*TurnContext], rules map[agent.State]trigger.Rule, timeoutTrigger string) (*Model, error) {
	engine, err := statechart.NewEngine(agent.AllStates(), transitions,
		statechart.WithGuardPanicHandler[*TurnContext](logGuardPanic))
	if err != nil {
		return nil, err
	}
	resolver, err := trigger.NewResolver(agent.AllStates(), timeoutTrigger, rules)
	if err != nil {
		return nil, err
	}
	return &Model{Engine: engine, Resolver: resolver}, nil
}

// DefaultModel returns the browsing/engagement model.
func DefaultModel() (*Model, error) {
	return NewModel(DefaultTransitions(), DefaultRules(), TriggerTimeout)
}

// DefaultTransitions returns the default table. Declaration order matters:
// it is the fallback order for ambiguous triggers.
func DefaultTransitions() []statechart.Transition[*TurnContext] {
	return []statechart.Transition[*TurnContext]{
		{Trigger: TriggerStartBrowsing, Source: agent.StateIdle, Target: agent.StateBrowsing},

		{Trigger: TriggerItemsFound, Source: agent.StateBrowsing, Target: agent.StateEvaluating, Guard: hasCandidates, GuardName: "hasCandidates"},
		{Trigger: TriggerFeedEmpty, Source: agent.StateBrowsing, Target: agent.StateResting},

		{Trigger: TriggerDecides, Source: agent.StateEvaluating, Target: agent.StateComposing, Action: publishPost, ActionName: ActionPublishPost},
		{Trigger: TriggerDecides, Source: agent.StateEvaluating, Target: agent.StateEngaging, Guard: hasCandidates, GuardName: "hasCandidates", Action: likeTopItem, ActionName: ActionLikeTopItem},
		{Trigger: TriggerDecides, Source: agent.StateEvaluating, Target: agent.StateBrowsing},

		{Trigger: TriggerPublished, Source: agent.StateComposing, Target: agent.StateResting},
		{Trigger: TriggerReacted, Source: agent.StateEngaging, Target: agent.StateBrowsing},
		{Trigger: TriggerWake, Source: agent.StateResting, Target: agent.StateIdle, Guard: rested, GuardName: "rested"},

		{Trigger: TriggerTimeout, Source: agent.StateIdle, Target: agent.StateBrowsing},
		{Trigger: TriggerTimeout, Source: agent.StateBrowsing, Target: agent.StateResting},
		{Trigger: TriggerTimeout, Source: agent.StateEvaluating, Target: agent.StateBrowsing},
		{Trigger: TriggerTimeout, Source: agent.StateComposing, Target: agent.StateResting},
		{Trigger: TriggerTimeout, Source: agent.StateEngaging, Target: agent.StateResting},
		{Trigger: TriggerTimeout, Source: agent.StateResting, Target: agent.StateIdle},
	}
}

// DefaultRules returns one trigger rule per declared state.
func DefaultRules() map[agent.State]trigger.Rule {
	return map[agent.State]trigger.Rule{
		agent.StateIdle:       trigger.Fixed(TriggerStartBrowsing),
		agent.StateBrowsing:   trigger.ByCandidates(TriggerItemsFound, TriggerFeedEmpty),
		agent.StateEvaluating: trigger.Fixed(TriggerDecides),
		agent.StateComposing:  trigger.Fixed(TriggerPublished),
		agent.StateEngaging:   trigger.Fixed(TriggerReacted),
		agent.StateResting:    trigger.Fixed(TriggerWake),
	}
}

// StateDescriptions documents the default states for graph export.
func StateDescriptions() map[agent.State]string {
	return map[agent.State]string{
		agent.StateIdle:       "Not yet engaged with the feed",
		agent.StateBrowsing:   "Scrolling ranked candidates",
		agent.StateEvaluating: "Choosing between posting, reacting and browsing on",
		agent.StateComposing:  "Has just published a post",
		agent.StateEngaging:   "Has just liked the top item",
		agent.StateResting:    "Away from the feed for at least a round",
	}
}

func hasCandidates(tc *TurnContext) bool {
	return tc.HasCandidates()
}

// rested holds an agent in resting for at least one full round.
func rested(tc *TurnContext) bool {
	return tc.Agent.TicksInState() >= 1
}

func publishPost(tc *TurnContext) error {
	p := tc.Population.Content().Publish(tc.Agent.ID(), tc.Round)
	tc.Population.Incr(population.CounterPosts, 1)
	tc.PublishedPost = p.ID
	return nil
}

func likeTopItem(tc *TurnContext) error {
	top, ok := feed.Top(tc.Items)
	if !ok {
		return ErrNothingToLike
	}
	if _, err := tc.Population.Content().Like(top.PostID); err != nil {
		return fmt.Errorf("like %s: %w", top.PostID, err)
	}
	tc.Population.Incr(population.CounterLikes, 1)
	tc.LikedPost = top.PostID
	return nil
}

func logGuardPanic(trig string, source, target agent.State, recovered any) {
	logging.Warn().
		Add(logging.Trigger(trig)).
		Add(logging.FromState(source)).
		Add(logging.ToState(target)).
		Add(logging.Reason(fmt.Sprint(recovered))).
		Msg("guard panicked, candidate rejected")
}
