package agent

import "errors"

// Domain errors for agent runtimes.
var (
	// ErrInvalidState indicates the state is not a declared state.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidID indicates an agent ID is empty.
	ErrInvalidID = errors.New("invalid agent ID")

	// ErrInvalidThreshold indicates a threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidSnapshot indicates a persisted runtime cannot be reconstructed.
	ErrInvalidSnapshot = errors.New("invalid runtime snapshot")
)
