// Package statechart provides a guarded finite-state transition table and
// the engine that evaluates it.
package statechart

import "github.com/felixgeelhaar/agentsim/domain/agent"

// Guard decides whether a transition may fire for the given context.
type Guard[C any] func(ctx C) bool

// Action performs the side effect attached to a transition.
type Action[C any] func(ctx C) error

// Transition is one row of the transition table.
// Several transitions may share a trigger and source; the engine picks among them.
type Transition[C any] struct {
	// Trigger is the event name that activates this transition.
	Trigger string

	// Source is the state the agent must occupy.
	Source agent.State

	// Target is the state the agent moves to.
	Target agent.State

	// Guard is optional. A nil guard always passes.
	Guard Guard[C]

	// GuardName labels the guard for graph export.
	GuardName string

	// Action is optional and runs once when the transition is applied.
	Action Action[C]

	// ActionName labels the action for counters and the decision log.
	ActionName string
}

// Guarded reports whether the transition carries a guard.
func (t Transition[C]) Guarded() bool {
	return t.Guard != nil
}

// HasAction reports whether the transition carries an action.
func (t Transition[C]) HasAction() bool {
	return t.Action != nil
}

// key identifies a transition for duplicate detection.
type key struct {
	trigger string
	source  agent.State
	target  agent.State
}

// lookup indexes candidates by trigger and source.
type lookup struct {
	trigger string
	source  agent.State
}
