package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/agentsim/domain/agent"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// SimulationID adds a simulation ID field.
func SimulationID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("simulation_id", id)
	}
}

// AgentID adds an agent ID field.
func AgentID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("agent_id", id)
	}
}

// Round adds a round number field.
func Round(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("round", n)
	}
}

// State adds a state field.
func State(s agent.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("state", string(s))
	}
}

// FromState adds a from_state field for transitions.
func FromState(s agent.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_state", string(s))
	}
}

// ToState adds a to_state field for transitions.
func ToState(s agent.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_state", string(s))
	}
}

// Trigger adds a trigger field.
func Trigger(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("trigger", name)
	}
}

// Action adds an action field.
func Action(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("action", name)
	}
}

// Oracle adds the oracle name.
func Oracle(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("oracle", name)
	}
}

// Candidates adds the number of candidate targets or items.
func Candidates(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("candidates", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Fallback marks whether the oracle fell back.
func Fallback(fallback bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("fallback", fallback)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an int field with custom key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}
