package config

import (
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	domainconfig "github.com/felixgeelhaar/agentsim/domain/config"
	"github.com/felixgeelhaar/agentsim/domain/population"
	"github.com/google/uuid"
)

// Builder turns a configuration into population parameters.
type Builder struct {
	config *domainconfig.SimulationConfig
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.SimulationConfig) *Builder {
	return &Builder{config: config}
}

// BuildResult contains the values a run needs from configuration.
type BuildResult struct {
	// SimulationID is the configured ID or a generated one.
	SimulationID string
	// Agents declares the population in turn order.
	Agents []population.AgentSpec
	// MaxRounds is the last round to run.
	MaxRounds int
	// SeedItems is the number of seed posts.
	SeedItems int
	// CheckpointFrequency is zero when checkpointing is disabled.
	CheckpointFrequency int
	// FeedLimit caps candidates per agent.
	FeedLimit int
}

// Build validates the configuration and resolves per-agent settings.
func (b *Builder) Build() (*BuildResult, error) {
	if errs := domainconfig.NewValidator().Validate(b.config); errs.HasErrors() {
		return nil, fmt.Errorf("%w: %v", domainconfig.ErrValidationFailed, errs)
	}

	result := &BuildResult{
		SimulationID: b.config.Simulation.ID,
		Agents:       b.AgentSpecs(),
		MaxRounds:    b.config.Simulation.MaxRounds,
		SeedItems:    b.config.Simulation.SeedItems,
		FeedLimit:    b.config.Feed.Limit,
	}
	if result.SimulationID == "" {
		result.SimulationID = uuid.NewString()
	}
	if b.config.Checkpoint.Enabled() {
		result.CheckpointFrequency = b.config.Checkpoint.Frequency
	}
	return result, nil
}

// AgentSpecs returns one spec per agent with overrides applied.
func (b *Builder) AgentSpecs() []population.AgentSpec {
	defaults := agent.Settings{
		TimeoutThreshold:    b.config.Agents.TimeoutThreshold,
		EngagementThreshold: b.config.Agents.EngagementThreshold,
		MaxHistoryDepth:     b.config.Agents.MaxHistoryDepth,
	}
	overrides := make(map[string]domainconfig.AgentOverride, len(b.config.Agents.Overrides))
	for _, o := range b.config.Agents.Overrides {
		overrides[o.ID] = o
	}

	ids := b.config.AgentIDs()
	specs := make([]population.AgentSpec, 0, len(ids))
	for _, id := range ids {
		s := defaults
		if o, ok := overrides[id]; ok {
			s = applyOverride(s, o)
		}
		specs = append(specs, population.AgentSpec{ID: id, Settings: s})
	}
	return specs
}

func applyOverride(s agent.Settings, o domainconfig.AgentOverride) agent.Settings {
	if o.TimeoutThreshold > 0 {
		s.TimeoutThreshold = o.TimeoutThreshold
	}
	if o.EngagementThreshold != nil {
		s.EngagementThreshold = *o.EngagementThreshold
	}
	if o.MaxHistoryDepth > 0 {
		s.MaxHistoryDepth = o.MaxHistoryDepth
	}
	return s
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *domainconfig.SimulationConfig {
	return domainconfig.Default()
}
