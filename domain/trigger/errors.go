package trigger

import "errors"

// Domain errors for trigger resolution.
var (
	// ErrUnmappedState indicates a declared state has no trigger rule.
	ErrUnmappedState = errors.New("state has no trigger rule")

	// ErrEmptyTimeoutTrigger indicates the timeout trigger name is empty.
	ErrEmptyTimeoutTrigger = errors.New("timeout trigger must not be empty")
)
