package statechart

import "errors"

// Domain errors for transition tables.
var (
	// ErrInvalidTable indicates the transition table is malformed.
	// It always wraps one of the more specific errors below.
	ErrInvalidTable = errors.New("invalid transition table")

	// ErrUnknownState indicates a transition references an undeclared state.
	ErrUnknownState = errors.New("unknown state")

	// ErrDuplicateTransition indicates two transitions share trigger, source and target.
	ErrDuplicateTransition = errors.New("duplicate transition")

	// ErrEmptyTrigger indicates a transition has no trigger name.
	ErrEmptyTrigger = errors.New("empty trigger")

	// ErrNoStates indicates the engine was built without any declared state.
	ErrNoStates = errors.New("no states declared")
)
