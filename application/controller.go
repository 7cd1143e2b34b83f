// Package application runs simulations: the round controller drives every
// agent through the decision pipeline, round by round.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
	"github.com/felixgeelhaar/agentsim/domain/config"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/domain/population"
	infraevent "github.com/felixgeelhaar/agentsim/infrastructure/event"
	infrafeed "github.com/felixgeelhaar/agentsim/infrastructure/feed"
	"github.com/felixgeelhaar/agentsim/infrastructure/logging"
	infraoracle "github.com/felixgeelhaar/agentsim/infrastructure/oracle"
	"github.com/felixgeelhaar/agentsim/infrastructure/statemachine"
	"github.com/felixgeelhaar/agentsim/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/felixgeelhaar/agentsim/application"

// RoundReport summarises one round.
type RoundReport struct {
	Round        int
	Transitions  int
	Fallbacks    int
	Skipped      int
	Ticks        int
	Distribution map[agent.State]int
	Duration     time.Duration
	Turns        []TurnResult
}

func (r *RoundReport) add(res TurnResult) {
	r.Turns = append(r.Turns, res)
	if res.Outcome.Decision.Fallback() {
		r.Fallbacks++
	}
	switch {
	case res.Skipped != nil:
		r.Skipped++
	case res.Outcome.Transitioned:
		r.Transitions++
	default:
		r.Ticks++
	}
}

// runLog is the decision log of one simulation run.
type runLog interface {
	decisionLog
	Flush(ctx context.Context) error
}

func (nopDecisionLog) Flush(context.Context) error { return nil }

// DefaultOracleTimeout bounds an oracle consultation when none is configured.
const DefaultOracleTimeout = 10 * time.Second

// Controller runs rounds over a population.
type Controller struct {
	config ControllerConfig

	mu        sync.Mutex
	lifecycle *statemachine.Lifecycle
}

// NewController creates a controller. Missing collaborators get defaults.
func NewController(opts ...Option) (*Controller, error) {
	cfg := ControllerConfig{
		CheckpointFrequency: 1,
		Clock:               time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Model == nil {
		m, err := DefaultModel()
		if err != nil {
			return nil, err
		}
		cfg.Model = m
	}
	if cfg.Oracle == nil {
		cfg.Oracle = infraoracle.NewRuleOracle()
	}
	if cfg.OracleTimeout == 0 {
		cfg.OracleTimeout = DefaultOracleTimeout
	}
	if cfg.Supplier == nil {
		cfg.Supplier = infrafeed.NewRanker()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoopMetrics{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer(tracerName)
	}
	if cfg.OracleTimeout < 0 {
		return nil, fmt.Errorf("%w: oracle timeout must be positive, got %s", config.ErrValidationFailed, cfg.OracleTimeout)
	}
	if cfg.FeedLimit < 0 {
		return nil, fmt.Errorf("%w: feed limit must be non-negative, got %d", config.ErrValidationFailed, cfg.FeedLimit)
	}
	if cfg.Checkpoints != nil && cfg.CheckpointFrequency < 1 {
		return nil, fmt.Errorf("%w: checkpoint frequency must be at least 1, got %d", config.ErrValidationFailed, cfg.CheckpointFrequency)
	}

	return &Controller{config: cfg}, nil
}

// Config returns the effective configuration.
func (c *Controller) Config() ControllerConfig {
	return c.config
}

// Phase returns the lifecycle phase of the most recent run.
func (c *Controller) Phase() statemachine.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lifecycle == nil {
		return statemachine.PhaseIdle
	}
	return c.lifecycle.Phase()
}

// PhaseChanges returns the lifecycle transitions of the most recent run.
func (c *Controller) PhaseChanges() []statemachine.PhaseChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lifecycle == nil {
		return nil
	}
	return append([]statemachine.PhaseChange(nil), c.lifecycle.Context().Changes...)
}

func (c *Controller) runLogFor(simulationID string) runLog {
	if c.config.Publisher == nil {
		return nopDecisionLog{}
	}
	return infraevent.NewRecorder(c.config.Publisher, simulationID, c.config.Clock)
}

// RunSimulation runs rounds pop.RoundNumber+1 through maxRounds. Rounds are
// 1-based and pop.RoundNumber is the last completed round, so a restored
// population continues where its checkpoint left off.
func (c *Controller) RunSimulation(ctx context.Context, pop *population.State, maxRounds int) error {
	if pop == nil {
		return ErrNoPopulation
	}
	if maxRounds < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidRounds, maxRounds)
	}

	lc, err := statemachine.NewLifecycle(pop.SimulationID, maxRounds, c.config.Clock)
	if err != nil {
		return err
	}
	defer lc.Stop()
	c.mu.Lock()
	c.lifecycle = lc
	c.mu.Unlock()

	if pop.RoundNumber >= maxRounds {
		lc.Advance(pop.RoundNumber)
		return lc.Complete()
	}

	log := c.runLogFor(pop.SimulationID)
	turn := c.turnHandler(log)

	startType := event.TypeSimulationStarted
	if pop.RoundNumber > 0 {
		startType = event.TypeSimulationResumed
	}
	if err := lc.Start(pop.RoundNumber); err != nil {
		return err
	}
	c.config.Metrics.SimulationStarted(ctx, pop.SimulationID)
	if err := log.Record(ctx, startType, event.SimulationStartedPayload{
		FromRound: pop.RoundNumber,
		MaxRounds: maxRounds,
		Agents:    pop.Len(),
		Oracle:    c.config.Oracle.Name(),
	}); err != nil {
		return c.fail(ctx, lc, log, pop, err)
	}

	logging.Info().
		Add(logging.SimulationID(pop.SimulationID)).
		Add(logging.Int("from_round", pop.RoundNumber)).
		Add(logging.Int("max_rounds", maxRounds)).
		Add(logging.Int("agents", pop.Len())).
		Add(logging.Oracle(c.config.Oracle.Name())).
		Msg("simulation started")

	for round := pop.RoundNumber + 1; round <= maxRounds; round++ {
		if _, err := c.runRound(ctx, turn, log, pop, round); err != nil {
			return c.fail(ctx, lc, log, pop, err)
		}
		lc.Advance(round)
		if err := c.checkpoint(ctx, log, pop, round); err != nil {
			return c.fail(ctx, lc, log, pop, err)
		}
	}

	if err := lc.Complete(); err != nil {
		return c.fail(ctx, lc, log, pop, err)
	}
	if err := log.Record(ctx, event.TypeSimulationCompleted, event.SimulationFinishedPayload{
		RoundNumber: pop.RoundNumber,
	}); err != nil {
		return err
	}
	if err := log.Flush(ctx); err != nil {
		return fmt.Errorf("flush decision log: %w", err)
	}
	c.config.Metrics.SimulationFinished(ctx, pop.SimulationID, true)

	logging.Info().
		Add(logging.SimulationID(pop.SimulationID)).
		Add(logging.Round(pop.RoundNumber)).
		Msg("simulation completed")
	return nil
}

// RunRound runs one round outside a simulation lifecycle. Effects of
// earlier agents are visible to later agents in the same round.
func (c *Controller) RunRound(ctx context.Context, pop *population.State, round int) (RoundReport, error) {
	if pop == nil {
		return RoundReport{}, ErrNoPopulation
	}
	log := c.runLogFor(pop.SimulationID)
	report, err := c.runRound(ctx, c.turnHandler(log), log, pop, round)
	if err != nil {
		return report, err
	}
	return report, log.Flush(ctx)
}

// turnHandler wraps a fresh pipeline in the configured middleware.
func (c *Controller) turnHandler(log decisionLog) TurnHandler {
	return Chain(c.config.Middleware...)(newPipeline(&c.config, log).RunTurn)
}

func (c *Controller) runRound(ctx context.Context, turn TurnHandler, log runLog, pop *population.State, round int) (report RoundReport, err error) {
	ctx, span := c.config.Tracer.Start(ctx, "simulation.round", trace.WithAttributes(
		attribute.String("simulation.id", pop.SimulationID),
		attribute.Int("simulation.round", round),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("round.transitions", report.Transitions),
				attribute.Int("round.fallbacks", report.Fallbacks),
				attribute.Int("round.skipped", report.Skipped),
			)
		}
		span.End()
	}()

	start := c.config.Clock()
	report = RoundReport{Round: round}

	for i, a := range pop.Agents() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := turn(ctx, Turn{Agent: a, Population: pop, Round: round, Index: i})
		if err != nil {
			return report, err
		}
		report.add(res)
	}

	if err := pop.CompleteRound(round); err != nil {
		return report, err
	}
	report.Distribution = pop.StateDistribution()
	report.Duration = c.config.Clock().Sub(start)

	if err := log.Record(ctx, event.TypeRoundCompleted, event.RoundCompletedPayload{
		RoundNumber:  round,
		Transitions:  report.Transitions,
		Fallbacks:    report.Fallbacks,
		Skipped:      report.Skipped,
		Distribution: report.Distribution,
		Duration:     report.Duration,
	}); err != nil {
		return report, err
	}
	c.config.Metrics.RecordRound(ctx, round, report.Duration)

	logging.Info().
		Add(logging.SimulationID(pop.SimulationID)).
		Add(logging.Round(round)).
		Add(logging.Int("transitions", report.Transitions)).
		Add(logging.Int("fallbacks", report.Fallbacks)).
		Add(logging.Int("skipped", report.Skipped)).
		Add(logging.Duration(report.Duration)).
		Msg("round completed")
	return report, nil
}

// checkpoint saves synchronously when round is due. The next round does
// not start until the save returns.
func (c *Controller) checkpoint(ctx context.Context, log runLog, pop *population.State, round int) error {
	if c.config.Checkpoints == nil || round%c.config.CheckpointFrequency != 0 {
		return nil
	}

	cp := checkpoint.FromPopulation(pop, c.config.Clock())
	ref, err := c.config.Checkpoints.Save(ctx, cp)
	c.config.Metrics.RecordCheckpoint(ctx, round, err == nil)
	if err != nil {
		return fmt.Errorf("%w: round %d: %w", ErrCheckpointFailed, round, err)
	}

	if err := log.Record(ctx, event.TypeCheckpointSaved, event.CheckpointSavedPayload{
		RoundNumber: round,
		Ref:         ref,
	}); err != nil {
		return err
	}

	logging.Info().
		Add(logging.SimulationID(pop.SimulationID)).
		Add(logging.Round(round)).
		Add(logging.Str("ref", ref)).
		Msg("checkpoint saved")
	return nil
}

// fail moves the lifecycle to failed and writes the failure record. The
// record is written even when ctx is already cancelled.
func (c *Controller) fail(ctx context.Context, lc *statemachine.Lifecycle, log runLog, pop *population.State, cause error) error {
	_ = lc.Fail(cause)

	bg := context.WithoutCancel(ctx)
	recErr := log.Record(bg, event.TypeSimulationFailed, event.SimulationFinishedPayload{
		RoundNumber: pop.RoundNumber,
		Error:       cause.Error(),
	})
	flushErr := log.Flush(bg)
	if err := errors.Join(recErr, flushErr); err != nil {
		logging.Warn().
			Add(logging.SimulationID(pop.SimulationID)).
			Add(logging.ErrorField(err)).
			Msg("failed to write failure record")
	}
	c.config.Metrics.SimulationFinished(bg, pop.SimulationID, false)

	logging.Error().
		Add(logging.SimulationID(pop.SimulationID)).
		Add(logging.Round(pop.RoundNumber)).
		Add(logging.ErrorField(cause)).
		Msg("simulation failed")
	return cause
}

// ResumeFromCheckpoint restores the most recent valid checkpoint and runs
// the remaining rounds. Corrupt checkpoints are skipped; a schema version
// mismatch stops the resume before any round runs.
func (c *Controller) ResumeFromCheckpoint(ctx context.Context, maxRounds int) (*population.State, error) {
	if c.config.Checkpoints == nil {
		return nil, ErrNoCheckpointStore
	}

	cp, err := c.config.Checkpoints.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest checkpoint: %w", err)
	}
	pop, err := cp.Population()
	if err != nil {
		return nil, fmt.Errorf("restore population: %w", err)
	}

	logging.Info().
		Add(logging.SimulationID(pop.SimulationID)).
		Add(logging.Round(pop.RoundNumber)).
		Msg("resuming from checkpoint")

	return pop, c.RunSimulation(ctx, pop, maxRounds)
}
