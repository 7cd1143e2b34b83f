// Package memory provides in-memory storage implementations.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/google/uuid"
)

// EventStore is an in-memory decision log.
type EventStore struct {
	events    map[string][]event.Event // simulationID -> events
	sequences map[string]uint64        // simulationID -> last sequence
	mu        sync.RWMutex
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events:    make(map[string][]event.Event),
		sequences: make(map[string]uint64),
	}
}

// Append persists one or more events atomically. Either every event is
// stored or none is.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		s.sequences[e.SimulationID]++
		e.Sequence = s.sequences[e.SimulationID]
		s.events[e.SimulationID] = append(s.events[e.SimulationID], e)
	}
	return nil
}

// LoadEvents retrieves all events for a simulation in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, simulationID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, simulationID, 0)
}

// LoadEventsFrom retrieves events starting from a specific sequence number.
func (s *EventStore) LoadEventsFrom(ctx context.Context, simulationID string, fromSeq uint64) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]event.Event, 0, len(s.events[simulationID]))
	for _, e := range s.events[simulationID] {
		if e.Sequence >= fromSeq {
			result = append(result, e)
		}
	}
	return result, nil
}

// Query retrieves events matching the given options.
func (s *EventStore) Query(ctx context.Context, simulationID string, opts event.QueryOptions) ([]event.Event, error) {
	events, err := s.LoadEvents(ctx, simulationID)
	if err != nil {
		return nil, err
	}
	return event.Filter(events, opts), nil
}

// CountEvents returns the number of events for a simulation.
func (s *EventStore) CountEvents(ctx context.Context, simulationID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events[simulationID])), nil
}

// ListSimulations returns all simulation IDs with events, sorted.
func (s *EventStore) ListSimulations(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.events))
	for id := range s.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Len returns the total number of events across simulations.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, events := range s.events {
		n += len(events)
	}
	return n
}

// Close is a no-op.
func (s *EventStore) Close() error {
	return nil
}

var (
	_ event.Store   = (*EventStore)(nil)
	_ event.Querier = (*EventStore)(nil)
)
