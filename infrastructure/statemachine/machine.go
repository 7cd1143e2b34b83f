// Package statemachine provides the statekit integration for the simulation
// lifecycle: idle, running, then completed or failed.
package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"
)

// Phase is a lifecycle state of a simulation run.
type Phase string

// Lifecycle phases.
const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// IsTerminal reports whether no further phase change is possible.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Lifecycle events.
const (
	EventStart    statekit.EventType = "START"
	EventComplete statekit.EventType = "COMPLETE"
	EventFail     statekit.EventType = "FAIL"
)

const machineID = "simulation"

// PhaseChange records one lifecycle transition.
type PhaseChange struct {
	From  Phase
	To    Phase
	Round int
	At    time.Time
}

// Context carries run progress through the lifecycle machine.
type Context struct {
	SimulationID string
	FromRound    int
	MaxRounds    int
	Round        int
	Err          error
	Changes      []PhaseChange
	phase        Phase
	now          func() time.Time
}

// NewContext creates a lifecycle context.
func NewContext(simulationID string, maxRounds int, now func() time.Time) *Context {
	if now == nil {
		now = time.Now
	}
	return &Context{
		SimulationID: simulationID,
		MaxRounds:    maxRounds,
		phase:        PhaseIdle,
		now:          now,
	}
}

// phasePayload travels with lifecycle events.
type phasePayload struct {
	To  Phase
	Err error
}

// NewLifecycleMachine creates the simulation lifecycle statechart.
func NewLifecycleMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](machineID).
		WithInitial(statekit.StateID(PhaseIdle)).
		WithContext(&Context{}).
		WithAction("recordPhase", recordPhase).
		WithAction("recordFailure", recordFailure).
		WithGuard("roundsRemaining", guardRoundsRemaining).
		WithGuard("allRoundsRun", guardAllRoundsRun).
		State(statekit.StateID(PhaseIdle)).
			On(EventStart).Target(statekit.StateID(PhaseRunning)).Guard("roundsRemaining").Do("recordPhase").
			On(EventComplete).Target(statekit.StateID(PhaseCompleted)).Guard("allRoundsRun").Do("recordPhase").
			On(EventFail).Target(statekit.StateID(PhaseFailed)).Do("recordFailure").
			Done().
		State(statekit.StateID(PhaseRunning)).
			On(EventComplete).Target(statekit.StateID(PhaseCompleted)).Guard("allRoundsRun").Do("recordPhase").
			On(EventFail).Target(statekit.StateID(PhaseFailed)).Do("recordFailure").
			Done().
		State(statekit.StateID(PhaseCompleted)).
			Final().
			Done().
		State(statekit.StateID(PhaseFailed)).
			Final().
			Done().
		Build()
}

// guardRoundsRemaining allows starting only when there is a round left to run.
func guardRoundsRemaining(ctx *Context, _ statekit.Event) bool {
	if ctx == nil {
		return false
	}
	return ctx.FromRound < ctx.MaxRounds
}

// guardAllRoundsRun allows completion only after the last round.
func guardAllRoundsRun(ctx *Context, _ statekit.Event) bool {
	if ctx == nil {
		return false
	}
	return ctx.Round >= ctx.MaxRounds
}

// recordPhase appends the phase change carried by the event.
func recordPhase(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx
	payload, ok := event.Payload.(phasePayload)
	if !ok {
		return
	}
	c.Changes = append(c.Changes, PhaseChange{
		From:  c.phase,
		To:    payload.To,
		Round: c.Round,
		At:    c.now(),
	})
	c.phase = payload.To
}

// recordFailure stores the failure cause and records the phase change.
func recordFailure(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	if payload, ok := event.Payload.(phasePayload); ok {
		(*ctx).Err = payload.Err
	}
	recordPhase(ctx, event)
}
