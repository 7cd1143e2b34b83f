// Package event provides the decision log: an append-only, per-simulation
// stream of typed records.
package event

import (
	"encoding/json"
	"time"
)

// Event is one decision log record.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// SimulationID is the simulation this event belongs to.
	SimulationID string `json:"simulation_id"`

	// Type classifies the event.
	Type Type `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Payload contains the event-specific data.
	Payload json.RawMessage `json:"payload"`

	// Sequence is the ordering number within the simulation's stream.
	// Stores assign it on append.
	Sequence uint64 `json:"sequence"`

	// Version is the payload schema version.
	Version int `json:"version,omitempty"`
}

// NewEvent creates an event with the given type and payload.
func NewEvent(simulationID string, eventType Type, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		SimulationID: simulationID,
		Type:         eventType,
		Timestamp:    at,
		Payload:      data,
		Version:      1,
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Validate checks the fields every store requires.
func (e *Event) Validate() error {
	if e.SimulationID == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	return nil
}
