// Package config provides domain models for simulation configuration.
package config

import (
	"fmt"
	"time"
)

// Oracle kinds.
const (
	OracleRule   = "rule"
	OracleStub   = "stub"
	OracleOllama = "ollama"
	OracleOpenAI = "openai"
)

// Checkpoint backends.
const (
	CheckpointFile   = "file"
	CheckpointBadger = "badger"
)

// Decision log backends.
const (
	LogMemory = "memory"
	LogBadger = "badger"
	LogSQLite = "sqlite"
	LogRedis  = "redis"
	LogNone   = "none"
)

// SimulationConfig is the complete simulation configuration.
type SimulationConfig struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`

	// Simulation contains run-level settings.
	Simulation RunSettings `json:"simulation" yaml:"simulation"`
	// Agents contains per-agent defaults and overrides.
	Agents AgentSettings `json:"agents" yaml:"agents"`
	// Checkpoint configures periodic snapshots.
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
	// Oracle configures ambiguity resolution.
	Oracle OracleConfig `json:"oracle" yaml:"oracle"`
	// DecisionLog configures the decision log backend.
	DecisionLog DecisionLogConfig `json:"decision_log" yaml:"decision_log"`
	// Feed configures the candidate supplier.
	Feed FeedConfig `json:"feed,omitempty" yaml:"feed,omitempty"`
	// Logging configures log output.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Tracing configures span export.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// RunSettings contains run-level settings.
type RunSettings struct {
	// ID names the simulation. Empty generates one.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// MaxRounds is the last round to run.
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`
	// Population is the number of agents.
	Population int `json:"population" yaml:"population"`
	// AgentPrefix prefixes generated agent IDs.
	AgentPrefix string `json:"agent_prefix,omitempty" yaml:"agent_prefix,omitempty"`
	// SeedItems is the number of seed posts created at initialization.
	SeedItems int `json:"seed_items,omitempty" yaml:"seed_items,omitempty"`
}

// AgentSettings contains per-agent defaults.
type AgentSettings struct {
	// TimeoutThreshold is the number of ticks before the timeout trigger fires.
	TimeoutThreshold int `json:"timeout_threshold" yaml:"timeout_threshold"`
	// EngagementThreshold is the minimum item score an agent engages with.
	EngagementThreshold float64 `json:"engagement_threshold" yaml:"engagement_threshold"`
	// MaxHistoryDepth bounds each agent's transition history.
	MaxHistoryDepth int `json:"max_history_depth" yaml:"max_history_depth"`
	// Overrides adjusts individual agents.
	Overrides []AgentOverride `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// AgentOverride adjusts the settings of one agent. Zero values inherit the defaults.
type AgentOverride struct {
	// ID is the agent to adjust.
	ID string `json:"id" yaml:"id"`
	// TimeoutThreshold overrides the default when positive.
	TimeoutThreshold int `json:"timeout_threshold,omitempty" yaml:"timeout_threshold,omitempty"`
	// EngagementThreshold overrides the default when set.
	EngagementThreshold *float64 `json:"engagement_threshold,omitempty" yaml:"engagement_threshold,omitempty"`
	// MaxHistoryDepth overrides the default when positive.
	MaxHistoryDepth int `json:"max_history_depth,omitempty" yaml:"max_history_depth,omitempty"`
}

// CheckpointConfig configures periodic snapshots.
type CheckpointConfig struct {
	// Directory holds checkpoint files. Empty disables checkpointing.
	Directory string `json:"directory,omitempty" yaml:"directory,omitempty"`
	// Frequency saves a checkpoint every N rounds.
	Frequency int `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	// Backend selects file or badger storage.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
}

// Enabled reports whether checkpoints are written.
func (c CheckpointConfig) Enabled() bool {
	return c.Directory != "" && c.Frequency > 0
}

// OracleConfig configures ambiguity resolution.
type OracleConfig struct {
	// Kind selects the oracle implementation.
	Kind string `json:"kind" yaml:"kind"`
	// Model is the model name for generative backends.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// BaseURL overrides the backend endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// APIKey authenticates against the backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// Answer is the fixed state returned by the stub oracle.
	Answer string `json:"answer,omitempty" yaml:"answer,omitempty"`
	// Temperature controls sampling for generative backends.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// Resilience wraps the oracle call.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
}

// ResilienceConfig contains resilience settings.
type ResilienceConfig struct {
	// Timeout bounds a single call.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Retry configures retry behavior.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// Multiplier is the backoff multiplier.
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Threshold is consecutive failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DecisionLogConfig configures the decision log backend.
type DecisionLogConfig struct {
	// Backend selects the store.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Dir is the badger data directory. Empty runs badger in memory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// DSN is the sqlite data source name.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Address is the redis address.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Password authenticates against redis.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	// DB selects the redis database.
	DB int `json:"db,omitempty" yaml:"db,omitempty"`
	// BufferSize batches appends. Zero writes every event immediately.
	BufferSize int `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`
}

// FeedConfig configures the candidate supplier.
type FeedConfig struct {
	// Limit caps the number of candidates per agent.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`
	// FailEvery makes every Nth fetch fail. Zero disables failure injection.
	FailEvery int `json:"fail_every,omitempty" yaml:"fail_every,omitempty"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum log level.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is json or console.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Trace exporters.
const (
	TraceNone   = "none"
	TraceStdout = "stdout"
	TraceOTLP   = "otlp"
)

// TracingConfig selects where round and turn spans go.
type TracingConfig struct {
	// Exporter is none, stdout or otlp.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP gRPC endpoint, e.g. localhost:4317.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS for the OTLP connection.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is the fraction of traces kept, in [0, 1].
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// Enabled reports whether spans are exported.
func (c TracingConfig) Enabled() bool {
	return c.Exporter != "" && c.Exporter != TraceNone
}

// Default returns a configuration that runs out of the box.
func Default() *SimulationConfig {
	return &SimulationConfig{
		Name:    "agentsim",
		Version: "1",
		Simulation: RunSettings{
			MaxRounds:   10,
			Population:  3,
			AgentPrefix: "agent",
			SeedItems:   3,
		},
		Agents: AgentSettings{
			TimeoutThreshold:    5,
			EngagementThreshold: 0.5,
			MaxHistoryDepth:     32,
		},
		Checkpoint: CheckpointConfig{
			Frequency: 5,
			Backend:   CheckpointFile,
		},
		Oracle: OracleConfig{
			Kind: OracleRule,
			Resilience: ResilienceConfig{
				Timeout: Duration(10 * time.Second),
				Retry: RetryConfig{
					MaxAttempts:  1,
					InitialDelay: Duration(100 * time.Millisecond),
					Multiplier:   2,
				},
				CircuitBreaker: CircuitBreakerConfig{
					Threshold: 5,
					Timeout:   Duration(30 * time.Second),
				},
			},
		},
		DecisionLog: DecisionLogConfig{
			Backend: LogMemory,
		},
		Feed: FeedConfig{
			Limit: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Tracing: TracingConfig{
			Exporter:   TraceNone,
			SampleRate: 1,
		},
	}
}

// AgentIDs returns the generated agent IDs in turn order.
func (c *SimulationConfig) AgentIDs() []string {
	prefix := c.Simulation.AgentPrefix
	if prefix == "" {
		prefix = "agent"
	}
	ids := make([]string, 0, c.Simulation.Population)
	for i := 1; i <= c.Simulation.Population; i++ {
		ids = append(ids, fmt.Sprintf("%s-%d", prefix, i))
	}
	return ids
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
