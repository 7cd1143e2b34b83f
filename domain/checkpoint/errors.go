package checkpoint

import "errors"

// Domain errors for checkpoints.
var (
	// ErrVersionMismatch indicates the checkpoint was written with another
	// schema version. Loading it is fatal; nothing is migrated silently.
	ErrVersionMismatch = errors.New("checkpoint schema version mismatch")

	// ErrCorrupt indicates the checkpoint failed to parse or its checksum does not match.
	ErrCorrupt = errors.New("checkpoint corrupt")

	// ErrNotFound indicates no checkpoint exists for the request.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrInvalidCheckpoint indicates a checkpoint cannot be saved as given.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")
)
