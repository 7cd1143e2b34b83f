package agent

import (
	"fmt"
	"time"
)

// Default per-agent settings.
const (
	DefaultTimeoutThreshold    = 5
	DefaultEngagementThreshold = 0.5
	DefaultMaxHistoryDepth     = 32
)

// Runtime is the mutable per-agent record.
// It is mutated only through Tick and TransitionTo.
type Runtime struct {
	id                  string
	current             State
	history             *History
	ticksInState        int
	timeoutThreshold    int
	engagementThreshold float64
}

// Settings configures a new runtime.
type Settings struct {
	TimeoutThreshold    int
	EngagementThreshold float64
	MaxHistoryDepth     int
}

// DefaultSettings returns the default per-agent settings.
func DefaultSettings() Settings {
	return Settings{
		TimeoutThreshold:    DefaultTimeoutThreshold,
		EngagementThreshold: DefaultEngagementThreshold,
		MaxHistoryDepth:     DefaultMaxHistoryDepth,
	}
}

// NewRuntime creates a runtime in the initial state.
func NewRuntime(id string, settings Settings) (*Runtime, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if settings.TimeoutThreshold < 1 {
		return nil, fmt.Errorf("%w: timeout threshold must be >= 1, got %d", ErrInvalidThreshold, settings.TimeoutThreshold)
	}
	if settings.EngagementThreshold < 0 || settings.EngagementThreshold > 1 {
		return nil, fmt.Errorf("%w: engagement threshold must be in [0,1], got %v", ErrInvalidThreshold, settings.EngagementThreshold)
	}
	return &Runtime{
		id:                  id,
		current:             InitialState,
		history:             NewHistory(settings.MaxHistoryDepth),
		timeoutThreshold:    settings.TimeoutThreshold,
		engagementThreshold: settings.EngagementThreshold,
	}, nil
}

// ID returns the agent identifier.
func (r *Runtime) ID() string { return r.id }

// CurrentState returns the state the agent occupies.
func (r *Runtime) CurrentState() State { return r.current }

// TicksInState returns the number of rounds spent in the current state.
func (r *Runtime) TicksInState() int { return r.ticksInState }

// TimeoutThreshold returns the tick count at which the agent times out.
func (r *Runtime) TimeoutThreshold() int { return r.timeoutThreshold }

// EngagementThreshold returns the minimum item score the agent engages with.
func (r *Runtime) EngagementThreshold() float64 { return r.engagementThreshold }

// MaxHistoryDepth returns the history capacity.
func (r *Runtime) MaxHistoryDepth() int { return r.history.Cap() }

// History returns the transition history, oldest first.
func (r *Runtime) History() []TransitionRecord { return r.history.Records() }

// Tick records one round spent in the current state.
func (r *Runtime) Tick() {
	r.ticksInState++
}

// IsTimedOut returns true once the agent has stayed in its state for the timeout threshold.
func (r *Runtime) IsTimedOut() bool {
	return r.ticksInState >= r.timeoutThreshold
}

// TransitionTo records the change in history, moves to the new state
// and resets the tick counter.
func (r *Runtime) TransitionTo(to State, trigger string, round int, at time.Time) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, to)
	}
	r.history.Append(TransitionRecord{
		FromState:   r.current,
		ToState:     to,
		Trigger:     trigger,
		Timestamp:   at,
		RoundNumber: round,
	})
	r.current = to
	r.ticksInState = 0
	return nil
}

// Snapshot is the persisted form of a runtime. It mirrors the runtime fields exactly.
type Snapshot struct {
	ID                  string             `json:"id"`
	CurrentState        State              `json:"currentState"`
	History             []TransitionRecord `json:"history"`
	TicksInState        int                `json:"ticksInState"`
	TimeoutThreshold    int                `json:"timeoutThreshold"`
	EngagementThreshold float64            `json:"engagementThreshold"`
	MaxHistoryDepth     int                `json:"maxHistoryDepth"`
}

// Snapshot captures the runtime for persistence.
func (r *Runtime) Snapshot() Snapshot {
	return Snapshot{
		ID:                  r.id,
		CurrentState:        r.current,
		History:             r.history.Records(),
		TicksInState:        r.ticksInState,
		TimeoutThreshold:    r.timeoutThreshold,
		EngagementThreshold: r.engagementThreshold,
		MaxHistoryDepth:     r.history.Cap(),
	}
}

// RestoreRuntime builds a fresh runtime from a snapshot.
// If the snapshot holds more records than its depth allows, the oldest are dropped.
func RestoreRuntime(s Snapshot) (*Runtime, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, ErrInvalidID)
	}
	if !s.CurrentState.IsValid() {
		return nil, fmt.Errorf("%w: agent %s: %w: %q", ErrInvalidSnapshot, s.ID, ErrInvalidState, s.CurrentState)
	}
	if s.TicksInState < 0 {
		return nil, fmt.Errorf("%w: agent %s: negative ticks", ErrInvalidSnapshot, s.ID)
	}
	rt, err := NewRuntime(s.ID, Settings{
		TimeoutThreshold:    s.TimeoutThreshold,
		EngagementThreshold: s.EngagementThreshold,
		MaxHistoryDepth:     s.MaxHistoryDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	for _, rec := range s.History {
		if !rec.FromState.IsValid() || !rec.ToState.IsValid() {
			return nil, fmt.Errorf("%w: agent %s: history references undeclared state", ErrInvalidSnapshot, s.ID)
		}
		rt.history.Append(rec)
	}
	rt.current = s.CurrentState
	rt.ticksInState = s.TicksInState
	return rt, nil
}
