package config

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/agentsim/domain/agent"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the dotted path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates simulation configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *SimulationConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateSimulation(config)
	v.validateAgents(config)
	v.validateCheckpoint(config)
	v.validateOracle(config)
	v.validateDecisionLog(config)
	v.validateFeed(config)
	v.validateTracing(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *SimulationConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateSimulation(config *SimulationConfig) {
	if config.Simulation.MaxRounds < 1 {
		v.addError("simulation.max_rounds", "max_rounds must be at least 1")
	}
	if config.Simulation.Population < 1 {
		v.addError("simulation.population", "population must be at least 1")
	}
	if config.Simulation.SeedItems < 0 {
		v.addError("simulation.seed_items", "seed_items must be non-negative")
	}
}

func (v *Validator) validateAgents(config *SimulationConfig) {
	a := config.Agents
	if a.TimeoutThreshold < 1 {
		v.addError("agents.timeout_threshold", "timeout_threshold must be at least 1")
	}
	if a.EngagementThreshold < 0 || a.EngagementThreshold > 1 {
		v.addError("agents.engagement_threshold", "engagement_threshold must be in [0, 1]")
	}
	if a.MaxHistoryDepth < 1 {
		v.addError("agents.max_history_depth", "max_history_depth must be at least 1")
	}

	known := make(map[string]bool, config.Simulation.Population)
	for _, id := range config.AgentIDs() {
		known[id] = true
	}
	seen := make(map[string]bool)
	for i, o := range a.Overrides {
		path := fmt.Sprintf("agents.overrides[%d]", i)
		switch {
		case o.ID == "":
			v.addError(path+".id", "id is required")
		case !known[o.ID]:
			v.addError(path+".id", fmt.Sprintf("unknown agent: %s", o.ID))
		case seen[o.ID]:
			v.addError(path+".id", fmt.Sprintf("duplicate override: %s", o.ID))
		}
		seen[o.ID] = true
		if o.TimeoutThreshold < 0 {
			v.addError(path+".timeout_threshold", "timeout_threshold must be non-negative")
		}
		if o.EngagementThreshold != nil && (*o.EngagementThreshold < 0 || *o.EngagementThreshold > 1) {
			v.addError(path+".engagement_threshold", "engagement_threshold must be in [0, 1]")
		}
		if o.MaxHistoryDepth < 0 {
			v.addError(path+".max_history_depth", "max_history_depth must be non-negative")
		}
	}
}

func (v *Validator) validateCheckpoint(config *SimulationConfig) {
	c := config.Checkpoint
	if c.Frequency < 0 {
		v.addError("checkpoint.frequency", "frequency must be non-negative")
	}
	if c.Directory != "" && c.Frequency == 0 {
		v.addError("checkpoint.frequency", "frequency must be positive when a directory is set")
	}
	switch c.Backend {
	case "", CheckpointFile, CheckpointBadger:
	default:
		v.addError("checkpoint.backend", fmt.Sprintf("unknown backend: %s", c.Backend))
	}
}

func (v *Validator) validateOracle(config *SimulationConfig) {
	o := config.Oracle
	switch o.Kind {
	case OracleRule:
	case OracleStub:
		if o.Answer != "" {
			if _, err := agent.ParseState(o.Answer); err != nil {
				v.addError("oracle.answer", fmt.Sprintf("invalid state: %s", o.Answer))
			}
		}
	case OracleOllama, OracleOpenAI:
		if o.Model == "" {
			v.addError("oracle.model", "model is required for generative oracles")
		}
	case "":
		v.addError("oracle.kind", "kind is required")
	default:
		v.addError("oracle.kind", fmt.Sprintf("unknown oracle: %s", o.Kind))
	}

	r := o.Resilience
	if r.Timeout < 0 {
		v.addError("oracle.resilience.timeout", "timeout must be non-negative")
	}
	if r.Retry.MaxAttempts < 0 {
		v.addError("oracle.resilience.retry.max_attempts", "max_attempts must be non-negative")
	}
	if r.Retry.MaxAttempts > 1 && r.Retry.Multiplier < 1 {
		v.addError("oracle.resilience.retry.multiplier", "multiplier must be >= 1")
	}
	if r.CircuitBreaker.Threshold < 0 {
		v.addError("oracle.resilience.circuit_breaker.threshold", "threshold must be non-negative")
	}
}

func (v *Validator) validateDecisionLog(config *SimulationConfig) {
	d := config.DecisionLog
	switch d.Backend {
	case "", LogMemory, LogNone, LogBadger:
	case LogSQLite:
		if d.DSN == "" {
			v.addError("decision_log.dsn", "dsn is required for sqlite")
		}
	case LogRedis:
		if d.Address == "" {
			v.addError("decision_log.address", "address is required for redis")
		}
	default:
		v.addError("decision_log.backend", fmt.Sprintf("unknown backend: %s", d.Backend))
	}
	if d.BufferSize < 0 {
		v.addError("decision_log.buffer_size", "buffer_size must be non-negative")
	}
}

func (v *Validator) validateFeed(config *SimulationConfig) {
	if config.Feed.Limit < 0 {
		v.addError("feed.limit", "limit must be non-negative")
	}
	if config.Feed.FailEvery < 0 {
		v.addError("feed.fail_every", "fail_every must be non-negative")
	}
}

func (v *Validator) validateTracing(config *SimulationConfig) {
	t := config.Tracing
	switch t.Exporter {
	case "", TraceNone, TraceStdout:
	case TraceOTLP:
		if t.Endpoint == "" {
			v.addError("tracing.endpoint", "endpoint is required for otlp")
		}
	default:
		v.addError("tracing.exporter", fmt.Sprintf("unknown exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("tracing.sample_rate", "sample_rate must be in [0, 1]")
	}
}
