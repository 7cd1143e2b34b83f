package application

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/event"
)

// Replay reads a simulation back from its decision log.
type Replay struct {
	eventStore event.Store
}

// NewReplay creates a new replay engine.
func NewReplay(eventStore event.Store) *Replay {
	return &Replay{
		eventStore: eventStore,
	}
}

// Step is one agent turn as recorded in the decision log.
type Step struct {
	Round        int
	Trigger      string
	From         agent.State
	To           agent.State
	Transitioned bool
	Action       string
	Fallback     bool
	Skipped      bool
	Timestamp    time.Time
}

// Trajectories rebuilds every agent's path through the statechart, in
// turn order, from decision and skip records.
func (r *Replay) Trajectories(ctx context.Context, simulationID string) (map[string][]Step, error) {
	events, err := r.load(ctx, simulationID, 0)
	if err != nil {
		return nil, err
	}
	return trajectories(events)
}

// TrajectoriesFrom is Trajectories restricted to events at or after fromSeq.
func (r *Replay) TrajectoriesFrom(ctx context.Context, simulationID string, fromSeq uint64) (map[string][]Step, error) {
	events, err := r.load(ctx, simulationID, fromSeq)
	if err != nil {
		return nil, err
	}
	return trajectories(events)
}

// FinalStates returns each agent's state after the last recorded turn.
func (r *Replay) FinalStates(ctx context.Context, simulationID string) (map[string]agent.State, error) {
	paths, err := r.Trajectories(ctx, simulationID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]agent.State, len(paths))
	for id, steps := range paths {
		out[id] = steps[len(steps)-1].To
	}
	return out, nil
}

func (r *Replay) load(ctx context.Context, simulationID string, fromSeq uint64) ([]event.Event, error) {
	var (
		events []event.Event
		err    error
	)
	if fromSeq == 0 {
		events, err = r.eventStore.LoadEvents(ctx, simulationID)
	} else {
		events, err = r.eventStore.LoadEventsFrom(ctx, simulationID, fromSeq)
	}
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if len(events) == 0 {
		return nil, event.ErrSimulationNotFound
	}
	return events, nil
}

func trajectories(events []event.Event) (map[string][]Step, error) {
	out := make(map[string][]Step)
	for _, e := range events {
		switch e.Type {
		case event.TypeDecisionRecorded:
			var p event.DecisionRecordedPayload
			if err := e.UnmarshalPayload(&p); err != nil {
				return nil, fmt.Errorf("unmarshal %s: %w", e.Type, err)
			}
			out[p.AgentID] = append(out[p.AgentID], Step{
				Round:        p.RoundNumber,
				Trigger:      p.Trigger,
				From:         p.FromState,
				To:           p.ToState,
				Transitioned: p.Transitioned,
				Action:       p.ChosenAction,
				Fallback:     p.Fallback,
				Timestamp:    p.Timestamp,
			})

		case event.TypeTurnSkipped:
			var p event.TurnSkippedPayload
			if err := e.UnmarshalPayload(&p); err != nil {
				return nil, fmt.Errorf("unmarshal %s: %w", e.Type, err)
			}
			out[p.AgentID] = append(out[p.AgentID], Step{
				Round:     p.RoundNumber,
				From:      p.State,
				To:        p.State,
				Skipped:   true,
				Timestamp: e.Timestamp,
			})

		// Lifecycle, round and checkpoint records carry no per-agent state.
		default:
		}
	}
	return out, nil
}

// EventIterator allows iterating over events one at a time.
type EventIterator struct {
	events []event.Event
	index  int
}

// NewEventIterator creates an iterator over events.
func (r *Replay) NewEventIterator(ctx context.Context, simulationID string) (*EventIterator, error) {
	events, err := r.eventStore.LoadEvents(ctx, simulationID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	return &EventIterator{
		events: events,
		index:  0,
	}, nil
}

// Next returns the next event, or nil if done.
func (it *EventIterator) Next() *event.Event {
	if it.index >= len(it.events) {
		return nil
	}
	e := &it.events[it.index]
	it.index++
	return e
}

// Peek returns the next event without advancing.
func (it *EventIterator) Peek() *event.Event {
	if it.index >= len(it.events) {
		return nil
	}
	return &it.events[it.index]
}

// Reset returns to the beginning.
func (it *EventIterator) Reset() {
	it.index = 0
}

// Len returns the total number of events.
func (it *EventIterator) Len() int {
	return len(it.events)
}

// Index returns the current position.
func (it *EventIterator) Index() int {
	return it.index
}

// Timeline provides a round-based view of events.
type Timeline struct {
	events []event.Event
}

// NewTimeline creates a timeline from a simulation's decision log.
func (r *Replay) NewTimeline(ctx context.Context, simulationID string) (*Timeline, error) {
	events, err := r.eventStore.LoadEvents(ctx, simulationID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	return &Timeline{events: events}, nil
}

// NewTimelineFromEvents wraps events already loaded in sequence order.
func NewTimelineFromEvents(events []event.Event) *Timeline {
	return &Timeline{events: events}
}

// Len returns the number of events.
func (tl *Timeline) Len() int {
	return len(tl.events)
}

// Duration returns the wall-clock span of the log.
func (tl *Timeline) Duration() time.Duration {
	if len(tl.events) < 2 {
		return 0
	}
	first := tl.events[0].Timestamp
	last := tl.events[len(tl.events)-1].Timestamp
	return last.Sub(first)
}

// EventsByType returns events of a specific type.
func (tl *Timeline) EventsByType(eventType event.Type) []event.Event {
	var result []event.Event
	for _, e := range tl.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// Decisions returns the decision records of one round, in turn order.
func (tl *Timeline) Decisions(round int) []event.DecisionRecordedPayload {
	var result []event.DecisionRecordedPayload
	for _, e := range tl.events {
		if e.Type != event.TypeDecisionRecorded {
			continue
		}
		var p event.DecisionRecordedPayload
		if err := e.UnmarshalPayload(&p); err == nil && p.RoundNumber == round {
			result = append(result, p)
		}
	}
	return result
}

// Round returns every per-turn record of round in log order: decisions,
// fallbacks and skipped turns.
func (tl *Timeline) Round(round int) []event.Event {
	var result []event.Event
	for _, e := range tl.events {
		var p struct {
			RoundNumber int `json:"roundNumber"`
		}
		switch e.Type {
		case event.TypeDecisionRecorded, event.TypeOracleFallback, event.TypeTurnSkipped:
		default:
			continue
		}
		if err := e.UnmarshalPayload(&p); err == nil && p.RoundNumber == round {
			result = append(result, e)
		}
	}
	return result
}

// Fallbacks returns every oracle fallback record.
func (tl *Timeline) Fallbacks() []event.OracleFallbackPayload {
	var result []event.OracleFallbackPayload
	for _, e := range tl.EventsByType(event.TypeOracleFallback) {
		var p event.OracleFallbackPayload
		if err := e.UnmarshalPayload(&p); err == nil {
			result = append(result, p)
		}
	}
	return result
}

// Rounds returns the round summaries.
func (tl *Timeline) Rounds() []event.RoundCompletedPayload {
	var result []event.RoundCompletedPayload
	for _, e := range tl.EventsByType(event.TypeRoundCompleted) {
		var p event.RoundCompletedPayload
		if err := e.UnmarshalPayload(&p); err == nil {
			result = append(result, p)
		}
	}
	return result
}
