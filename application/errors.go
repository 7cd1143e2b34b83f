package application

import "errors"

// Application errors.
var (
	// ErrNoPopulation indicates a run was started without a population.
	ErrNoPopulation = errors.New("population is required")

	// ErrInvalidRounds indicates a non-positive round limit.
	ErrInvalidRounds = errors.New("max rounds must be at least 1")

	// ErrNoCheckpointStore indicates resume was requested without a store.
	ErrNoCheckpointStore = errors.New("no checkpoint store configured")

	// ErrCheckpointFailed indicates a checkpoint could not be saved.
	ErrCheckpointFailed = errors.New("checkpoint save failed")
)
