package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/agentsim/application"
	"github.com/felixgeelhaar/agentsim/domain/inspector"
	infrainspector "github.com/felixgeelhaar/agentsim/infrastructure/inspector"
	"github.com/felixgeelhaar/agentsim/infrastructure/storage"
)

// graphOptions holds options for the graph command.
type graphOptions struct {
	configPath string
	format     string
	counts     string
}

// newGraphCmd creates the graph command.
func (a *App) newGraphCmd() *cobra.Command {
	opts := &graphOptions{}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the agent transition table",
		Long: `Render the transition table as a Mermaid, DOT or JSON graph.

With --counts, each edge is annotated with how often it was taken in the
decision log of the given simulation.

Examples:
  agentsim graph
  agentsim graph --format dot | dot -Tsvg > agents.svg
  agentsim graph --counts sim-42 -c sim.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.renderGraph(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(inspector.FormatMermaid), "Output format: mermaid, dot, json")
	cmd.Flags().StringVar(&opts.counts, "counts", "", "Annotate edges with counts from this simulation's decision log")

	return cmd
}

// renderGraph prints the transition table in the requested format.
func (a *App) renderGraph(ctx context.Context, opts *graphOptions) error {
	format := inspector.ExportFormat(opts.format)
	switch format {
	case inspector.FormatMermaid, inspector.FormatDOT, inspector.FormatJSON:
	default:
		return fmt.Errorf("unsupported format: %s", opts.format)
	}

	model, err := application.DefaultModel()
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	exporterOpts := []infrainspector.StateMachineOption[*application.TurnContext]{
		infrainspector.WithDescriptions[*application.TurnContext](application.StateDescriptions()),
	}
	if opts.counts != "" {
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
		exporterOpts = append(exporterOpts,
			infrainspector.WithTransitionCounts[*application.TurnContext](events, opts.counts))
	}

	exporter := infrainspector.NewStateMachineExporter(model.Engine, exporterOpts...)
	svc := application.NewInspectionService(infrainspector.NewDefaultInspector(exporter, nil, nil))

	data, err := svc.ExportStateMachine(ctx, format)
	if err != nil {
		return fmt.Errorf("render graph: %w", err)
	}

	_, _ = fmt.Fprintln(a.stdout, string(data))
	return nil
}
