package event

import "context"

// Publisher writes events to the decision log.
type Publisher interface {
	// Publish sends events to the decision log.
	Publish(ctx context.Context, events ...Event) error

	// Flush writes any buffered events.
	Flush(ctx context.Context) error

	// Close flushes and releases resources.
	Close() error
}
