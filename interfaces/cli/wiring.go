package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/agentsim"
	"github.com/felixgeelhaar/agentsim/application"
	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
	domainconfig "github.com/felixgeelhaar/agentsim/domain/config"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	"github.com/felixgeelhaar/agentsim/domain/population"
	infracheckpoint "github.com/felixgeelhaar/agentsim/infrastructure/checkpoint"
	infraconfig "github.com/felixgeelhaar/agentsim/infrastructure/config"
	infraevent "github.com/felixgeelhaar/agentsim/infrastructure/event"
	infrafeed "github.com/felixgeelhaar/agentsim/infrastructure/feed"
	"github.com/felixgeelhaar/agentsim/infrastructure/logging"
	"github.com/felixgeelhaar/agentsim/infrastructure/observability"
	infraoracle "github.com/felixgeelhaar/agentsim/infrastructure/oracle"
	"github.com/felixgeelhaar/agentsim/infrastructure/storage"
	"github.com/felixgeelhaar/agentsim/infrastructure/telemetry"
)

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string, strict bool) (*domainconfig.SimulationConfig, error) {
	if path == "" {
		return infraconfig.DefaultConfig(), nil
	}
	loader := infraconfig.NewLoaderWithOptions(
		infraconfig.WithValidation(true),
		infraconfig.WithStrictEnv(strict),
	)
	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// initLogging configures the default logger from cfg. The --log-level flag wins.
func (a *App) initLogging(cfg domainconfig.LoggingConfig) {
	level := cfg.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	logging.Init(logging.Config{Level: level, Format: cfg.Format, Output: a.stderr})
	if level != "" {
		logging.SetLevel(level)
	}
}

// simulation holds everything one run or resume needs.
type simulation struct {
	config     *domainconfig.SimulationConfig
	build      *infraconfig.BuildResult
	controller *application.Controller
	events     event.Store
	publisher  *infraevent.Publisher
	checkpoint checkpoint.Store
	tracing    *observability.Provider
	closers    []io.Closer
}

// openSimulation wires stores, oracle and feed from cfg.
func openSimulation(cfg *domainconfig.SimulationConfig) (*simulation, error) {
	build, err := infraconfig.NewBuilder(cfg).Build()
	if err != nil {
		return nil, err
	}
	sim := &simulation{config: cfg, build: build}

	model, err := application.DefaultModel()
	if err != nil {
		return nil, err
	}
	oracle, err := infraoracle.FromConfig(cfg.Oracle)
	if err != nil {
		return nil, err
	}

	var supplier feed.Supplier = infrafeed.NewRanker()
	if cfg.Feed.FailEvery > 0 {
		supplier = infrafeed.NewFlaky(supplier, cfg.Feed.FailEvery)
	}
	supplier = infrafeed.NewResilient(supplier, infraoracle.ExecutorConfig(cfg.Oracle.Resilience))

	metrics := telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())
	if err := metrics.Error(); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("metrics disabled")
	}

	opts := []application.Option{
		application.WithModel(model),
		application.WithOracle(oracle),
		application.WithOracleTimeout(cfg.Oracle.Resilience.Timeout.Duration()),
		application.WithSupplier(supplier),
		application.WithFeedLimit(build.FeedLimit),
		application.WithMetrics(metrics),
	}

	tracing, err := observability.New(append(
		observability.FromConfig(cfg.Tracing),
		observability.WithServiceVersion(agentsim.Version),
	)...)
	if err != nil {
		return nil, fmt.Errorf("start tracing: %w", err)
	}
	sim.tracing = tracing
	if tracing.Enabled() {
		opts = append(opts,
			application.WithTracer(tracing.Tracer()),
			application.WithTurnMiddleware(observability.TracingMiddleware(tracing.Tracer())),
		)
	}

	events, err := storage.Open(cfg.DecisionLog)
	if err != nil {
		_ = sim.Close()
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	if events != nil {
		sim.events = events
		sim.closers = append(sim.closers, events)
		sim.publisher = infraevent.NewPublisher(events, infraevent.WithBufferSize(cfg.DecisionLog.BufferSize))
		opts = append(opts, application.WithPublisher(sim.publisher))
	}

	if cfg.Checkpoint.Enabled() {
		store, closer, err := infracheckpoint.Open(cfg.Checkpoint)
		if err != nil {
			_ = sim.Close()
			return nil, fmt.Errorf("open checkpoint store: %w", err)
		}
		sim.checkpoint = store
		sim.closers = append(sim.closers, closer)
		opts = append(opts,
			application.WithCheckpointStore(store),
			application.WithCheckpointFrequency(build.CheckpointFrequency),
		)
	}

	controller, err := application.NewController(opts...)
	if err != nil {
		_ = sim.Close()
		return nil, err
	}
	sim.controller = controller
	return sim, nil
}

// newPopulation creates the initial population described by the build.
func (s *simulation) newPopulation() (*population.State, error) {
	return population.New(s.build.SimulationID, s.build.Agents, s.build.SeedItems)
}

// Close flushes the decision log and releases stores.
func (s *simulation) Close() error {
	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Flush(context.Background()))
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	if s.tracing != nil {
		errs = append(errs, s.tracing.Shutdown(context.Background()))
	}
	return errors.Join(errs...)
}
