package statemachine

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"
)

// ErrInvalidPhase is returned when a lifecycle event is not allowed in the current phase.
var ErrInvalidPhase = errors.New("invalid lifecycle transition")

// Lifecycle drives one simulation run through its phases.
type Lifecycle struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewLifecycle creates and starts a lifecycle in the idle phase.
func NewLifecycle(simulationID string, maxRounds int, now func() time.Time) (*Lifecycle, error) {
	machine, err := NewLifecycleMachine()
	if err != nil {
		return nil, fmt.Errorf("build lifecycle machine: %w", err)
	}
	ctx := NewContext(simulationID, maxRounds, now)
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	interp.Start()
	return &Lifecycle{interp: interp, ctx: ctx}, nil
}

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase {
	return Phase(l.interp.State().Value)
}

// IsTerminal reports whether the run has completed or failed.
func (l *Lifecycle) IsTerminal() bool {
	return l.interp.Done()
}

// Context returns the lifecycle context.
func (l *Lifecycle) Context() *Context {
	return l.ctx
}

// Start moves idle to running. fromRound is the last completed round.
func (l *Lifecycle) Start(fromRound int) error {
	l.interp.UpdateContext(func(c **Context) {
		(*c).FromRound = fromRound
		(*c).Round = fromRound
	})
	return l.send(EventStart, PhaseRunning, nil)
}

// Advance records the last completed round.
func (l *Lifecycle) Advance(round int) {
	l.interp.UpdateContext(func(c **Context) {
		(*c).Round = round
	})
}

// Complete moves to completed. It is rejected until every round has run.
func (l *Lifecycle) Complete() error {
	return l.send(EventComplete, PhaseCompleted, nil)
}

// Fail moves to failed and records cause.
func (l *Lifecycle) Fail(cause error) error {
	return l.send(EventFail, PhaseFailed, cause)
}

func (l *Lifecycle) send(event statekit.EventType, to Phase, cause error) error {
	from := l.Phase()
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s from terminal phase %s", ErrInvalidPhase, event, from)
	}
	l.interp.Send(statekit.Event{
		Type:    event,
		Payload: phasePayload{To: to, Err: cause},
	})
	if got := l.Phase(); got != to {
		return fmt.Errorf("%w: %s from %s stayed in %s", ErrInvalidPhase, event, from, got)
	}
	return nil
}

// Stop releases the interpreter.
func (l *Lifecycle) Stop() {
	l.interp.Stop()
}
