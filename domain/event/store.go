package event

import "context"

// Store defines the decision log persistence contract.
type Store interface {
	// Append persists one or more events atomically.
	// Events are assigned sequence numbers in order of appearance.
	Append(ctx context.Context, events ...Event) error

	// LoadEvents retrieves all events for a simulation in sequence order.
	LoadEvents(ctx context.Context, simulationID string) ([]Event, error)

	// LoadEventsFrom retrieves events starting from a sequence number.
	LoadEventsFrom(ctx context.Context, simulationID string, fromSeq uint64) ([]Event, error)

	// Close releases backend resources.
	Close() error
}

// QueryOptions configures event queries.
type QueryOptions struct {
	// Types filters to specific event types (empty means all).
	Types []Type

	// Limit is the maximum number of events to return (0 = no limit).
	Limit int

	// Offset is the number of events to skip.
	Offset int
}

// Matches reports whether t passes the type filter.
func (o QueryOptions) Matches(t Type) bool {
	if len(o.Types) == 0 {
		return true
	}
	for _, want := range o.Types {
		if want == t {
			return true
		}
	}
	return false
}

// Querier is an optional interface for stores that support filtered reads.
type Querier interface {
	// Query retrieves events matching the given options.
	Query(ctx context.Context, simulationID string, opts QueryOptions) ([]Event, error)

	// CountEvents returns the number of events for a simulation.
	CountEvents(ctx context.Context, simulationID string) (int64, error)

	// ListSimulations returns all simulation IDs with events in the store.
	ListSimulations(ctx context.Context) ([]string, error)
}

// Filter applies opts to events already in sequence order.
func Filter(events []Event, opts QueryOptions) []Event {
	out := make([]Event, 0, len(events))
	skip := opts.Offset
	for _, e := range events {
		if !opts.Matches(e.Type) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, e)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out
}
