package event

import "errors"

// Domain errors for decision log operations.
var (
	// ErrInvalidEvent is returned when an event is malformed.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrConnectionFailed is returned when connection to the store backend fails.
	ErrConnectionFailed = errors.New("decision log connection failed")

	// ErrSimulationNotFound is returned when a simulation has no events.
	ErrSimulationNotFound = errors.New("simulation not found in decision log")
)
