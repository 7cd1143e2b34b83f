// Package inspector provides types for inspecting and exporting simulation data.
package inspector

import (
	"time"

	"github.com/felixgeelhaar/agentsim/domain/agent"
)

// ExportFormat identifies the export format.
type ExportFormat string

const (
	// FormatJSON exports as JSON.
	FormatJSON ExportFormat = "json"

	// FormatDOT exports as Graphviz DOT.
	FormatDOT ExportFormat = "dot"

	// FormatMermaid exports as Mermaid diagram.
	FormatMermaid ExportFormat = "mermaid"
)

// StateMachineExport contains the transition table as a graph.
type StateMachineExport struct {
	// States contains all declared states in declaration order.
	States []StateExport `json:"states"`

	// Transitions contains all table rows in declaration order.
	Transitions []StateMachineTransition `json:"transitions"`

	// Initial is the state every agent starts in.
	Initial agent.State `json:"initial"`
}

// StateExport contains state details for export.
type StateExport struct {
	// Name is the state name.
	Name agent.State `json:"name"`

	// Description explains the state.
	Description string `json:"description,omitempty"`

	// Triggers lists the triggers valid from this state.
	Triggers []string `json:"triggers,omitempty"`

	// Ambiguous lists triggers with more than one target from this state.
	Ambiguous []string `json:"ambiguous,omitempty"`
}

// StateMachineTransition represents one row of the transition table.
type StateMachineTransition struct {
	// From is the source state.
	From agent.State `json:"from"`

	// To is the target state.
	To agent.State `json:"to"`

	// Trigger activates the transition.
	Trigger string `json:"trigger"`

	// Guard names the guard, if any.
	Guard string `json:"guard,omitempty"`

	// Action names the action, if any.
	Action string `json:"action,omitempty"`

	// Count is how often this transition was taken, from a decision log.
	Count int `json:"count,omitempty"`
}

// Label renders the transition label as trigger [guard] / action.
func (t StateMachineTransition) Label() string {
	label := t.Trigger
	if t.Guard != "" {
		label += " [" + t.Guard + "]"
	}
	if t.Action != "" {
		label += " / " + t.Action
	}
	return label
}

// CheckpointExport summarises a stored checkpoint.
type CheckpointExport struct {
	Ref           string              `json:"ref"`
	SimulationID  string              `json:"simulation_id"`
	SchemaVersion int                 `json:"schema_version"`
	RoundNumber   int                 `json:"round_number"`
	CreatedAt     time.Time           `json:"created_at"`
	Agents        []AgentExport       `json:"agents"`
	Distribution  map[agent.State]int `json:"distribution"`
	Counters      map[string]int64    `json:"counters"`
	Posts         int                 `json:"posts"`
}

// AgentExport contains one agent's persisted runtime.
type AgentExport struct {
	ID           string      `json:"id"`
	State        agent.State `json:"state"`
	TicksInState int         `json:"ticks_in_state"`
	History      int         `json:"history"`
	LastTrigger  string      `json:"last_trigger,omitempty"`
}

// DecisionLogExport summarises one simulation's decision log.
type DecisionLogExport struct {
	SimulationID string           `json:"simulation_id"`
	Events       int              `json:"events"`
	Rounds       int              `json:"rounds"`
	Decisions    []DecisionExport `json:"decisions"`
	Fallbacks    int              `json:"fallbacks"`
	Skipped      int              `json:"skipped"`
	Checkpoints  []string         `json:"checkpoints,omitempty"`
	Outcome      string           `json:"outcome,omitempty"`
}

// DecisionExport is one recorded agent decision.
type DecisionExport struct {
	Round    int         `json:"round"`
	AgentID  string      `json:"agent_id"`
	Trigger  string      `json:"trigger"`
	From     agent.State `json:"from"`
	To       agent.State `json:"to"`
	Action   string      `json:"action,omitempty"`
	Fallback bool        `json:"fallback,omitempty"`
}
