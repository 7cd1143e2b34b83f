package config_test

import (
	"strings"
	"testing"

	"github.com/felixgeelhaar/agentsim/domain/config"
)

func ptr[T any](v T) *T { return &v }

func TestValidator_DefaultIsValid(t *testing.T) {
	t.Parallel()

	errs := config.NewValidator().Validate(config.Default())
	if errs.HasErrors() {
		t.Errorf("Default() has validation errors: %v", errs)
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.SimulationConfig)
		path   string
	}{
		{"missing name", func(c *config.SimulationConfig) { c.Name = "" }, "name"},
		{"zero rounds", func(c *config.SimulationConfig) { c.Simulation.MaxRounds = 0 }, "simulation.max_rounds"},
		{"empty population", func(c *config.SimulationConfig) { c.Simulation.Population = 0 }, "simulation.population"},
		{"zero timeout", func(c *config.SimulationConfig) { c.Agents.TimeoutThreshold = 0 }, "agents.timeout_threshold"},
		{"engagement too high", func(c *config.SimulationConfig) { c.Agents.EngagementThreshold = 1.2 }, "agents.engagement_threshold"},
		{"zero history", func(c *config.SimulationConfig) { c.Agents.MaxHistoryDepth = 0 }, "agents.max_history_depth"},
		{"unknown override", func(c *config.SimulationConfig) {
			c.Agents.Overrides = []config.AgentOverride{{ID: "ghost"}}
		}, "agents.overrides[0].id"},
		{"duplicate override", func(c *config.SimulationConfig) {
			c.Agents.Overrides = []config.AgentOverride{{ID: "agent-1"}, {ID: "agent-1"}}
		}, "agents.overrides[1].id"},
		{"override engagement out of range", func(c *config.SimulationConfig) {
			c.Agents.Overrides = []config.AgentOverride{{ID: "agent-2", EngagementThreshold: ptr(-0.5)}}
		}, "agents.overrides[0].engagement_threshold"},
		{"directory without frequency", func(c *config.SimulationConfig) {
			c.Checkpoint.Directory = "/tmp/x"
			c.Checkpoint.Frequency = 0
		}, "checkpoint.frequency"},
		{"unknown checkpoint backend", func(c *config.SimulationConfig) { c.Checkpoint.Backend = "s3" }, "checkpoint.backend"},
		{"unknown oracle", func(c *config.SimulationConfig) { c.Oracle.Kind = "magic" }, "oracle.kind"},
		{"llm without model", func(c *config.SimulationConfig) { c.Oracle.Kind = config.OracleOllama }, "oracle.model"},
		{"stub with bad answer", func(c *config.SimulationConfig) {
			c.Oracle.Kind = config.OracleStub
			c.Oracle.Answer = "dancing"
		}, "oracle.answer"},
		{"sqlite without dsn", func(c *config.SimulationConfig) { c.DecisionLog.Backend = config.LogSQLite }, "decision_log.dsn"},
		{"redis without address", func(c *config.SimulationConfig) { c.DecisionLog.Backend = config.LogRedis }, "decision_log.address"},
		{"unknown log backend", func(c *config.SimulationConfig) { c.DecisionLog.Backend = "kafka" }, "decision_log.backend"},
		{"negative fail_every", func(c *config.SimulationConfig) { c.Feed.FailEvery = -1 }, "feed.fail_every"},
		{"otlp without endpoint", func(c *config.SimulationConfig) { c.Tracing.Exporter = config.TraceOTLP }, "tracing.endpoint"},
		{"unknown trace exporter", func(c *config.SimulationConfig) { c.Tracing.Exporter = "zipkin" }, "tracing.exporter"},
		{"sample rate above one", func(c *config.SimulationConfig) { c.Tracing.SampleRate = 2 }, "tracing.sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)
			errs := config.NewValidator().Validate(cfg)

			found := false
			for _, e := range errs {
				if e.Path == tt.path {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want an error at %s", errs, tt.path)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	var none config.ValidationErrors
	if none.Error() != "no validation errors" {
		t.Errorf("empty Error() = %q", none.Error())
	}

	one := config.ValidationErrors{{Path: "a", Message: "bad"}}
	if one.Error() != "a: bad" {
		t.Errorf("single Error() = %q", one.Error())
	}

	two := config.ValidationErrors{{Path: "a", Message: "bad"}, {Message: "worse"}}
	if !strings.HasPrefix(two.Error(), "2 validation errors") {
		t.Errorf("multi Error() = %q", two.Error())
	}
}

func TestSimulationConfig_AgentIDs(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Simulation.Population = 2
	cfg.Simulation.AgentPrefix = "bot"

	ids := cfg.AgentIDs()
	if len(ids) != 2 || ids[0] != "bot-1" || ids[1] != "bot-2" {
		t.Errorf("AgentIDs() = %v, want [bot-1 bot-2]", ids)
	}
}

func TestCheckpointConfig_Enabled(t *testing.T) {
	t.Parallel()

	if (config.CheckpointConfig{Frequency: 2}).Enabled() {
		t.Error("checkpointing without a directory should be disabled")
	}
	if !(config.CheckpointConfig{Directory: "d", Frequency: 2}).Enabled() {
		t.Error("checkpointing with directory and frequency should be enabled")
	}
}
