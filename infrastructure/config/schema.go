package config

import (
	"encoding/json"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	domainconfig "github.com/felixgeelhaar/agentsim/domain/config"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema      string                 `json:"$schema,omitempty"`
	ID          string                 `json:"$id,omitempty"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Type        string                 `json:"type,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
	Default     any                    `json:"default,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
	Maximum     *float64               `json:"maximum,omitempty"`
	Format      string                 `json:"format,omitempty"`
}

// GenerateSchema generates a JSON Schema for SimulationConfig.
func GenerateSchema() *JSONSchema {
	d := domainconfig.Default()
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/agentsim/simulation-config.schema.json",
		Title:       "Simulation Configuration",
		Description: "Configuration schema for agentsim runs",
		Type:        "object",
		Required:    []string{"name", "version"},
		Properties: map[string]*JSONSchema{
			"name":    {Type: "string", Description: "A human-readable name for this configuration"},
			"version": {Type: "string", Description: "The configuration schema version", Default: d.Version},
			"simulation": {
				Type:        "object",
				Description: "Run-level settings",
				Properties: map[string]*JSONSchema{
					"id":           {Type: "string", Description: "Simulation ID; generated when empty"},
					"max_rounds":   {Type: "integer", Minimum: floatPtr(1), Default: d.Simulation.MaxRounds},
					"population":   {Type: "integer", Minimum: floatPtr(1), Default: d.Simulation.Population},
					"agent_prefix": {Type: "string", Default: d.Simulation.AgentPrefix},
					"seed_items":   {Type: "integer", Minimum: floatPtr(0), Default: d.Simulation.SeedItems},
				},
			},
			"agents":       generateAgentsSchema(d),
			"checkpoint":   generateCheckpointSchema(d),
			"oracle":       generateOracleSchema(d),
			"decision_log": generateDecisionLogSchema(),
			"feed": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"limit":      {Type: "integer", Minimum: floatPtr(0), Default: d.Feed.Limit},
					"fail_every": {Type: "integer", Minimum: floatPtr(0), Description: "Fail every Nth fetch; 0 disables"},
				},
			},
			"logging": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"level":  {Type: "string", Enum: []string{"trace", "debug", "info", "warn", "error"}, Default: d.Logging.Level},
					"format": {Type: "string", Enum: []string{"console", "json"}, Default: d.Logging.Format},
				},
			},
			"tracing": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"exporter": {
						Type:    "string",
						Enum:    []string{domainconfig.TraceNone, domainconfig.TraceStdout, domainconfig.TraceOTLP},
						Default: d.Tracing.Exporter,
					},
					"endpoint":    {Type: "string", Description: "OTLP gRPC endpoint"},
					"insecure":    {Type: "boolean"},
					"sample_rate": {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1), Default: d.Tracing.SampleRate},
				},
			},
		},
	}
}

func generateAgentsSchema(d *domainconfig.SimulationConfig) *JSONSchema {
	settings := map[string]*JSONSchema{
		"timeout_threshold":    {Type: "integer", Minimum: floatPtr(1), Default: d.Agents.TimeoutThreshold},
		"engagement_threshold": {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1), Default: d.Agents.EngagementThreshold},
		"max_history_depth":    {Type: "integer", Minimum: floatPtr(1), Default: d.Agents.MaxHistoryDepth},
	}
	override := &JSONSchema{
		Type:     "object",
		Required: []string{"id"},
		Properties: map[string]*JSONSchema{
			"id":                   {Type: "string"},
			"timeout_threshold":    {Type: "integer", Minimum: floatPtr(0)},
			"engagement_threshold": {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1)},
			"max_history_depth":    {Type: "integer", Minimum: floatPtr(0)},
		},
	}
	settings["overrides"] = &JSONSchema{Type: "array", Items: override}
	return &JSONSchema{Type: "object", Description: "Per-agent defaults", Properties: settings}
}

func generateCheckpointSchema(d *domainconfig.SimulationConfig) *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Periodic population snapshots",
		Properties: map[string]*JSONSchema{
			"directory": {Type: "string", Description: "Checkpoint directory; empty disables checkpoints"},
			"frequency": {Type: "integer", Minimum: floatPtr(0), Default: d.Checkpoint.Frequency},
			"backend":   {Type: "string", Enum: []string{domainconfig.CheckpointFile, domainconfig.CheckpointBadger}, Default: d.Checkpoint.Backend},
		},
	}
}

func generateOracleSchema(d *domainconfig.SimulationConfig) *JSONSchema {
	states := make([]string, 0, len(agent.AllStates()))
	for _, s := range agent.AllStates() {
		states = append(states, s.String())
	}
	r := d.Oracle.Resilience
	return &JSONSchema{
		Type:        "object",
		Description: "Ambiguity resolution",
		Required:    []string{"kind"},
		Properties: map[string]*JSONSchema{
			"kind": {
				Type:    "string",
				Enum:    []string{domainconfig.OracleRule, domainconfig.OracleStub, domainconfig.OracleOllama, domainconfig.OracleOpenAI},
				Default: d.Oracle.Kind,
			},
			"model":       {Type: "string"},
			"base_url":    {Type: "string", Format: "uri"},
			"api_key":     {Type: "string"},
			"answer":      {Type: "string", Enum: states, Description: "Fixed answer of the stub oracle"},
			"temperature": {Type: "number", Minimum: floatPtr(0)},
			"resilience": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"timeout": {Type: "string", Format: "duration", Default: r.Timeout.Duration().String()},
					"retry": {
						Type: "object",
						Properties: map[string]*JSONSchema{
							"max_attempts":  {Type: "integer", Minimum: floatPtr(1), Default: r.Retry.MaxAttempts},
							"initial_delay": {Type: "string", Format: "duration", Default: r.Retry.InitialDelay.Duration().String()},
							"multiplier":    {Type: "number", Minimum: floatPtr(1), Default: r.Retry.Multiplier},
						},
					},
					"circuit_breaker": {
						Type: "object",
						Properties: map[string]*JSONSchema{
							"threshold": {Type: "integer", Minimum: floatPtr(1), Default: r.CircuitBreaker.Threshold},
							"timeout":   {Type: "string", Format: "duration", Default: r.CircuitBreaker.Timeout.Duration().String()},
						},
					},
				},
			},
		},
	}
}

func generateDecisionLogSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Decision log backend",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type: "string",
				Enum: []string{
					domainconfig.LogMemory, domainconfig.LogBadger, domainconfig.LogSQLite,
					domainconfig.LogRedis, domainconfig.LogNone,
				},
				Default: domainconfig.LogMemory,
			},
			"dir":         {Type: "string", Description: "Badger directory; empty runs in memory"},
			"dsn":         {Type: "string", Description: "SQLite data source name"},
			"address":     {Type: "string", Description: "Redis address"},
			"password":    {Type: "string"},
			"db":          {Type: "integer", Minimum: floatPtr(0)},
			"buffer_size": {Type: "integer", Minimum: floatPtr(0)},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	data, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
