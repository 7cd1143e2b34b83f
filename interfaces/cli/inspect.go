package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/agentsim/application"
	"github.com/felixgeelhaar/agentsim/domain/inspector"
	infracheckpoint "github.com/felixgeelhaar/agentsim/infrastructure/checkpoint"
	infrainspector "github.com/felixgeelhaar/agentsim/infrastructure/inspector"
	"github.com/felixgeelhaar/agentsim/infrastructure/storage"
)

// inspectOptions holds options for the inspect subcommands.
type inspectOptions struct {
	configPath string
	dir        string
}

// newInspectCmd creates the inspect command.
func (a *App) newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect checkpoints and decision logs",
		Long: `Inspect persisted simulation data as JSON.

Examples:
  # Summarise the latest valid checkpoint
  agentsim inspect checkpoint --dir ./checkpoints

  # Summarise a specific checkpoint
  agentsim inspect checkpoint cp-000010 -c sim.yaml

  # Summarise the decision log of a simulation
  agentsim inspect log sim-42 -c sim.yaml`,
	}

	cmd.AddCommand(a.newInspectCheckpointCmd())
	cmd.AddCommand(a.newInspectLogCmd())

	return cmd
}

func (a *App) newInspectCheckpointCmd() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "checkpoint [ref]",
		Short: "Summarise a checkpoint (latest when no ref is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return a.inspectCheckpoint(cmd.Context(), opts, ref)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Checkpoint directory (overrides config)")

	return cmd
}

func (a *App) newInspectLogCmd() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "log <simulation-id>",
		Short: "Summarise the decision log of a simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspectLog(cmd.Context(), opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")

	return cmd
}

// inspectCheckpoint prints a checkpoint summary.
func (a *App) inspectCheckpoint(ctx context.Context, opts *inspectOptions, ref string) error {
	cfg, err := loadConfig(opts.configPath, false)
	if err != nil {
		return err
	}
	if opts.dir != "" {
		cfg.Checkpoint.Directory = opts.dir
	}
	if cfg.Checkpoint.Directory == "" {
		return fmt.Errorf("checkpoint directory is required (--dir or checkpoint.directory)")
	}

	store, closer, err := infracheckpoint.Open(cfg.Checkpoint)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer func() { _ = closer.Close() }()

	svc := application.NewInspectionService(infrainspector.NewDefaultInspector(
		nil, infrainspector.NewCheckpointExporter(store), nil,
	))
	data, err := svc.ExportCheckpoint(ctx, ref, inspector.FormatJSON)
	if err != nil {
		return fmt.Errorf("inspect checkpoint: %w", err)
	}

	_, _ = fmt.Fprintln(a.stdout, string(data))
	return nil
}

// inspectLog prints a decision log summary.
func (a *App) inspectLog(ctx context.Context, opts *inspectOptions, simulationID string) error {
	cfg, err := loadConfig(opts.configPath, false)
	if err != nil {
		return err
	}

	events, err := storage.Open(cfg.DecisionLog)
	if err != nil {
		return fmt.Errorf("open decision log: %w", err)
	}
	if events == nil {
		return fmt.Errorf("decision log is disabled (decision_log.backend: none)")
	}
	defer func() { _ = events.Close() }()

	svc := application.NewInspectionService(infrainspector.NewDefaultInspector(
		nil, nil, infrainspector.NewDecisionLogExporter(events),
	))
	data, err := svc.ExportDecisionLog(ctx, simulationID, inspector.FormatJSON)
	if err != nil {
		return fmt.Errorf("inspect decision log: %w", err)
	}

	_, _ = fmt.Fprintln(a.stdout, string(data))
	return nil
}
