package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	domainconfig "github.com/felixgeelhaar/agentsim/domain/config"
	"github.com/felixgeelhaar/agentsim/domain/population"
	"github.com/felixgeelhaar/agentsim/infrastructure/statemachine"
)

// runOptions holds options for the run and resume commands.
type runOptions struct {
	configPath      string
	rounds          int
	population      int
	checkpointDir   string
	checkpointEvery int
	oracle          string
	jsonOutput      bool
	dryRun          bool
}

// newRunCmd creates the run command.
func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation from round 1",
		Long: `Run a fresh simulation using the provided configuration file.

Flags override the matching configuration values. Without a configuration
file the built-in defaults are used.

Examples:
  # Run with the defaults
  agentsim run

  # Run 50 rounds with checkpoints every 10 rounds
  agentsim run -c sim.yaml --rounds 50 --checkpoint-dir ./checkpoints --checkpoint-every 10

  # Validate the resulting configuration without running
  agentsim run -c sim.yaml --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSimulation(cmd.Context(), opts)
		},
	}

	addRunFlags(cmd, opts)
	cmd.Flags().IntVar(&opts.population, "population", 0, "Number of agents (overrides config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate configuration without running")

	return cmd
}

// newResumeCmd creates the resume command.
func (a *App) newResumeCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a simulation from its latest checkpoint",
		Long: `Resume from the most recent valid checkpoint and run the remaining rounds.

Corrupt checkpoints are skipped with a warning. A checkpoint written with a
different schema version stops the resume.

Examples:
  agentsim resume -c sim.yaml
  agentsim resume -c sim.yaml --rounds 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.resumeSimulation(cmd.Context(), opts)
		},
	}

	addRunFlags(cmd, opts)

	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().IntVar(&opts.rounds, "rounds", 0, "Last round to run (overrides config)")
	cmd.Flags().StringVar(&opts.checkpointDir, "checkpoint-dir", "", "Checkpoint directory (overrides config)")
	cmd.Flags().IntVar(&opts.checkpointEvery, "checkpoint-every", 0, "Checkpoint frequency in rounds (overrides config)")
	cmd.Flags().StringVar(&opts.oracle, "oracle", "", "Oracle kind: rule, stub, ollama, openai (overrides config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
}

// apply writes the flag overrides into cfg.
func (o *runOptions) apply(cfg *domainconfig.SimulationConfig) {
	if o.rounds > 0 {
		cfg.Simulation.MaxRounds = o.rounds
	}
	if o.population > 0 {
		cfg.Simulation.Population = o.population
	}
	if o.checkpointDir != "" {
		cfg.Checkpoint.Directory = o.checkpointDir
	}
	if o.checkpointEvery > 0 {
		cfg.Checkpoint.Frequency = o.checkpointEvery
	}
	if o.oracle != "" {
		cfg.Oracle.Kind = o.oracle
	}
}

func (a *App) prepare(opts *runOptions) (*simulation, error) {
	cfg, err := loadConfig(opts.configPath, false)
	if err != nil {
		return nil, err
	}
	opts.apply(cfg)
	a.initLogging(cfg.Logging)

	sim, err := openSimulation(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build simulation: %w", err)
	}
	return sim, nil
}

// runSimulation executes a fresh simulation.
func (a *App) runSimulation(ctx context.Context, opts *runOptions) (err error) {
	sim, err := a.prepare(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sim.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if opts.dryRun {
		_, _ = fmt.Fprintf(a.stdout, "Configuration validated successfully.\n")
		_, _ = fmt.Fprintf(a.stdout, "  Simulation: %s\n", sim.build.SimulationID)
		_, _ = fmt.Fprintf(a.stdout, "  Agents: %d\n", len(sim.build.Agents))
		_, _ = fmt.Fprintf(a.stdout, "  Rounds: %d\n", sim.build.MaxRounds)
		return nil
	}

	pop, err := sim.newPopulation()
	if err != nil {
		return fmt.Errorf("failed to create population: %w", err)
	}

	start := time.Now()
	runErr := sim.controller.RunSimulation(ctx, pop, sim.build.MaxRounds)
	if printErr := a.printSummary(pop, sim.controller.Phase(), time.Since(start), opts.jsonOutput); printErr != nil {
		return printErr
	}
	if runErr != nil {
		return fmt.Errorf("simulation failed: %w", runErr)
	}
	return nil
}

// resumeSimulation continues from the latest checkpoint.
func (a *App) resumeSimulation(ctx context.Context, opts *runOptions) (err error) {
	sim, err := a.prepare(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sim.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if sim.checkpoint == nil {
		return fmt.Errorf("checkpointing is not configured (set checkpoint.directory or --checkpoint-dir)")
	}

	start := time.Now()
	pop, runErr := sim.controller.ResumeFromCheckpoint(ctx, sim.build.MaxRounds)
	if pop == nil {
		return fmt.Errorf("resume failed: %w", runErr)
	}
	if printErr := a.printSummary(pop, sim.controller.Phase(), time.Since(start), opts.jsonOutput); printErr != nil {
		return printErr
	}
	if runErr != nil {
		return fmt.Errorf("simulation failed: %w", runErr)
	}
	return nil
}

// runSummary is the machine-readable result of a run.
type runSummary struct {
	SimulationID string              `json:"simulation_id"`
	Phase        statemachine.Phase  `json:"phase"`
	Rounds       int                 `json:"rounds"`
	Agents       int                 `json:"agents"`
	Distribution map[agent.State]int `json:"distribution"`
	Counters     map[string]int64    `json:"counters"`
	Posts        int                 `json:"posts"`
	Duration     string              `json:"duration"`
}

func (a *App) printSummary(pop *population.State, phase statemachine.Phase, d time.Duration, asJSON bool) error {
	summary := runSummary{
		SimulationID: pop.SimulationID,
		Phase:        phase,
		Rounds:       pop.RoundNumber,
		Agents:       pop.Len(),
		Distribution: pop.StateDistribution(),
		Counters:     pop.Counters(),
		Posts:        pop.Content().Len(),
		Duration:     d.String(),
	}

	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	_, _ = fmt.Fprintf(a.stdout, "Simulation %s\n", summary.SimulationID)
	_, _ = fmt.Fprintf(a.stdout, "  Phase: %s\n", summary.Phase)
	_, _ = fmt.Fprintf(a.stdout, "  Rounds completed: %d\n", summary.Rounds)
	_, _ = fmt.Fprintf(a.stdout, "  Agents: %d\n", summary.Agents)
	_, _ = fmt.Fprintf(a.stdout, "  Posts: %d\n", summary.Posts)
	_, _ = fmt.Fprintf(a.stdout, "  Duration: %s\n", summary.Duration)

	_, _ = fmt.Fprintf(a.stdout, "\nState distribution:\n")
	for _, s := range agent.AllStates() {
		if n := summary.Distribution[s]; n > 0 {
			_, _ = fmt.Fprintf(a.stdout, "  %-11s %d\n", s, n)
		}
	}

	_, _ = fmt.Fprintf(a.stdout, "\nCounters:\n")
	for _, name := range pop.CounterNames() {
		_, _ = fmt.Fprintf(a.stdout, "  %-20s %d\n", name, summary.Counters[name])
	}
	return nil
}
