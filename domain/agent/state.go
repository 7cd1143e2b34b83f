// Package agent provides the per-agent domain model for the simulation runtime.
package agent

import "fmt"

// State represents a behavioral state an agent can occupy.
// States are identified by stable string tokens and ordered by declaration.
type State string

// Canonical behavioral states, in declaration order.
const (
	StateIdle       State = "idle"       // Not yet engaged with the feed
	StateBrowsing   State = "browsing"   // Scrolling candidate items
	StateEvaluating State = "evaluating" // Weighing what to do with the feed
	StateComposing  State = "composing"  // Writing original content
	StateEngaging   State = "engaging"   // Reacting to someone else's item
	StateResting    State = "resting"    // Away from the feed
)

// InitialState is the state every runtime starts in.
const InitialState = StateIdle

var declared = []State{
	StateIdle,
	StateBrowsing,
	StateEvaluating,
	StateComposing,
	StateEngaging,
	StateResting,
}

// IsValid returns true if the state is a declared state.
func (s State) IsValid() bool {
	return s.Ordinal() >= 0
}

// Ordinal returns the declaration index of the state, or -1 if undeclared.
func (s State) Ordinal() int {
	for i, d := range declared {
		if d == s {
			return i
		}
	}
	return -1
}

// Less reports whether s is declared before other.
func (s State) Less(other State) bool {
	return s.Ordinal() < other.Ordinal()
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// AllStates returns all declared states in declaration order.
func AllStates() []State {
	out := make([]State, len(declared))
	copy(out, declared)
	return out
}

// ParseState converts a token into a declared State.
func ParseState(token string) (State, error) {
	s := State(token)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, token)
	}
	return s, nil
}
