package config

import (
	"encoding/json"
	"testing"
)

func TestGenerateSchema(t *testing.T) {
	t.Parallel()

	schema := GenerateSchema()

	if schema.Type != "object" || schema.Title != "Simulation Configuration" {
		t.Errorf("schema = %s %s", schema.Type, schema.Title)
	}
	for _, prop := range []string{"name", "version", "simulation", "agents", "checkpoint", "oracle", "decision_log", "feed", "logging"} {
		if _, ok := schema.Properties[prop]; !ok {
			t.Errorf("missing property: %s", prop)
		}
	}

	answer := schema.Properties["oracle"].Properties["answer"]
	if len(answer.Enum) != 6 {
		t.Errorf("oracle.answer.Enum has %d values, want 6", len(answer.Enum))
	}
	overrides := schema.Properties["agents"].Properties["overrides"]
	if overrides.Type != "array" || overrides.Items == nil || overrides.Items.Required[0] != "id" {
		t.Errorf("agents.overrides = %+v", overrides)
	}
}

func TestSchemaJSON(t *testing.T) {
	t.Parallel()

	s, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		t.Fatalf("SchemaJSON() is not valid JSON: %v", err)
	}
	if decoded["$schema"] != "https://json-schema.org/draft/2020-12/schema" {
		t.Errorf("$schema = %v", decoded["$schema"])
	}
}
