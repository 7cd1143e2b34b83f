package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/agentsim/application"
	infraconfig "github.com/felixgeelhaar/agentsim/infrastructure/config"
	infraoracle "github.com/felixgeelhaar/agentsim/infrastructure/oracle"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
	showSchema bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file and the transition model",
		Long: `Validate a simulation configuration file for correctness.

This command checks:
  - File format (YAML or JSON) and unknown fields
  - Required fields and value ranges
  - Agent overrides against the generated population
  - Oracle and storage backend settings
  - The transition table and trigger rules
  - Environment variable references (in strict mode)

Examples:
  agentsim validate -c sim.yaml
  agentsim validate -c sim.yaml --strict
  agentsim validate --schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showConfigSchema()
			}
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for configuration")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	config, err := loadConfig(opts.configPath, opts.strict)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	build, err := infraconfig.NewBuilder(config).Build()
	if err != nil {
		return fmt.Errorf("configuration build failed: %w", err)
	}
	model, err := application.DefaultModel()
	if err != nil {
		return fmt.Errorf("transition model invalid: %w", err)
	}
	if _, err := infraoracle.FromConfig(config.Oracle); err != nil {
		return fmt.Errorf("oracle configuration invalid: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	_, _ = fmt.Fprintf(a.stdout, "  Name: %s\n", config.Name)
	_, _ = fmt.Fprintf(a.stdout, "  Version: %s\n", config.Version)

	_, _ = fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(a.stdout, "  Rounds: %d\n", build.MaxRounds)
	_, _ = fmt.Fprintf(a.stdout, "  Agents: %d\n", len(build.Agents))
	_, _ = fmt.Fprintf(a.stdout, "  Seed items: %d\n", build.SeedItems)
	_, _ = fmt.Fprintf(a.stdout, "  Oracle: %s\n", config.Oracle.Kind)
	if build.CheckpointFrequency > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Checkpoints: every %d rounds in %s\n", build.CheckpointFrequency, config.Checkpoint.Directory)
	} else {
		_, _ = fmt.Fprintf(a.stdout, "  Checkpoints: disabled\n")
	}
	if config.DecisionLog.Backend != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Decision log: %s\n", config.DecisionLog.Backend)
	}
	if len(config.Agents.Overrides) > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Agent overrides: %d\n", len(config.Agents.Overrides))
	}
	_, _ = fmt.Fprintf(a.stdout, "  Transitions: %d\n", len(model.Engine.Transitions()))

	return nil
}

// showConfigSchema displays the JSON schema for configuration.
func (a *App) showConfigSchema() error {
	schemaJSON, err := infraconfig.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	_, _ = fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}
