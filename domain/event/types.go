package event

import (
	"time"

	"github.com/felixgeelhaar/agentsim/domain/agent"
)

// Type classifies decision log events.
type Type string

// Event types written by the round controller.
const (
	// Simulation lifecycle events
	TypeSimulationStarted   Type = "simulation.started"
	TypeSimulationResumed   Type = "simulation.resumed"
	TypeSimulationCompleted Type = "simulation.completed"
	TypeSimulationFailed    Type = "simulation.failed"

	// Per-turn events
	TypeDecisionRecorded Type = "decision.recorded"
	TypeOracleFallback   Type = "oracle.fallback"
	TypeTurnSkipped      Type = "turn.skipped"

	// Round events
	TypeRoundCompleted  Type = "round.completed"
	TypeCheckpointSaved Type = "checkpoint.saved"
)

// DecisionRecordedPayload is written once per agent per round.
type DecisionRecordedPayload struct {
	RoundNumber  int         `json:"roundNumber"`
	AgentID      string      `json:"agentId"`
	Trigger      string      `json:"trigger"`
	FromState    agent.State `json:"fromState"`
	ToState      agent.State `json:"toState"`
	Transitioned bool        `json:"transitioned"`
	ChosenAction string      `json:"chosenAction,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Fallback     bool        `json:"fallback"`
	Oracle       string      `json:"oracle,omitempty"`
	Candidates   int         `json:"candidates"`
}

// OracleFallbackPayload describes a failed ambiguity resolution.
type OracleFallbackPayload struct {
	RoundNumber int           `json:"roundNumber"`
	AgentID     string        `json:"agentId"`
	Trigger     string        `json:"trigger"`
	Candidates  []agent.State `json:"candidates"`
	Chosen      agent.State   `json:"chosen"`
	Oracle      string        `json:"oracle"`
	Reason      string        `json:"reason"`
}

// TurnSkippedPayload describes an agent turn aborted by a stage failure.
type TurnSkippedPayload struct {
	RoundNumber int         `json:"roundNumber"`
	AgentID     string      `json:"agentId"`
	State       agent.State `json:"state"`
	Stage       string      `json:"stage"`
	Error       string      `json:"error"`
}

// RoundCompletedPayload summarises a round.
type RoundCompletedPayload struct {
	RoundNumber  int                 `json:"roundNumber"`
	Transitions  int                 `json:"transitions"`
	Fallbacks    int                 `json:"fallbacks"`
	Skipped      int                 `json:"skipped"`
	Distribution map[agent.State]int `json:"distribution"`
	Duration     time.Duration       `json:"duration"`
}

// CheckpointSavedPayload references a stored checkpoint.
type CheckpointSavedPayload struct {
	RoundNumber int    `json:"roundNumber"`
	Ref         string `json:"ref"`
}

// SimulationStartedPayload describes the start or resumption of a simulation.
type SimulationStartedPayload struct {
	FromRound int    `json:"fromRound"`
	MaxRounds int    `json:"maxRounds"`
	Agents    int    `json:"agents"`
	Oracle    string `json:"oracle"`
}

// SimulationFinishedPayload describes the end of a simulation.
type SimulationFinishedPayload struct {
	RoundNumber int    `json:"roundNumber"`
	Error       string `json:"error,omitempty"`
}
