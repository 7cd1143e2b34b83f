// Package telemetry provides OpenTelemetry metrics for simulations.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordTransition(ctx context.Context, fromState, toState, trigger string)
	RecordFallback(ctx context.Context, oracle, trigger string)
	RecordSkippedTurn(ctx context.Context, stage string)
	RecordOracleLatency(ctx context.Context, oracle string, duration time.Duration, fallback bool)
	RecordRound(ctx context.Context, round int, duration time.Duration)
	RecordCheckpoint(ctx context.Context, round int, success bool)
	SimulationStarted(ctx context.Context, simulationID string)
	SimulationFinished(ctx context.Context, simulationID string, success bool)
}

// MetricsProvider records simulation metrics through an OpenTelemetry meter.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	transitions metric.Int64Counter
	fallbacks   metric.Int64Counter
	skipped     metric.Int64Counter
	rounds      metric.Int64Counter
	checkpoints metric.Int64Counter

	// Histograms
	oracleDuration metric.Float64Histogram
	roundDuration  metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	activeSimulations metric.Int64UpDownCounter

	initErr error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Provider supplies the meter. Nil uses the global provider.
	Provider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/agentsim",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	defaults := DefaultMetricsConfig()
	if config.MeterName == "" {
		config.MeterName = defaults.MeterName
		config.MeterVersion = defaults.MeterVersion
	}
	provider := config.Provider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	mp := &MetricsProvider{
		meter: provider.Meter(
			config.MeterName,
			metric.WithInstrumentationVersion(config.MeterVersion),
		),
	}
	mp.initErr = mp.initInstruments()
	return mp
}

func (mp *MetricsProvider) initInstruments() error {
	var err error

	if mp.transitions, err = mp.meter.Int64Counter(
		"agentsim.transitions",
		metric.WithDescription("Number of agent state transitions"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return err
	}

	if mp.fallbacks, err = mp.meter.Int64Counter(
		"agentsim.oracle.fallbacks",
		metric.WithDescription("Number of ambiguity resolutions that fell back to the first candidate"),
		metric.WithUnit("{fallback}"),
	); err != nil {
		return err
	}

	if mp.skipped, err = mp.meter.Int64Counter(
		"agentsim.turns.skipped",
		metric.WithDescription("Number of agent turns aborted by a stage failure"),
		metric.WithUnit("{turn}"),
	); err != nil {
		return err
	}

	if mp.rounds, err = mp.meter.Int64Counter(
		"agentsim.rounds",
		metric.WithDescription("Number of completed rounds"),
		metric.WithUnit("{round}"),
	); err != nil {
		return err
	}

	if mp.checkpoints, err = mp.meter.Int64Counter(
		"agentsim.checkpoints",
		metric.WithDescription("Number of checkpoint writes"),
		metric.WithUnit("{checkpoint}"),
	); err != nil {
		return err
	}

	if mp.oracleDuration, err = mp.meter.Float64Histogram(
		"agentsim.oracle.duration",
		metric.WithDescription("Duration of oracle consultations"),
		metric.WithUnit("ms"),
	); err != nil {
		return err
	}

	if mp.roundDuration, err = mp.meter.Float64Histogram(
		"agentsim.round.duration",
		metric.WithDescription("Duration of rounds"),
		metric.WithUnit("ms"),
	); err != nil {
		return err
	}

	mp.activeSimulations, err = mp.meter.Int64UpDownCounter(
		"agentsim.simulations.active",
		metric.WithDescription("Number of running simulations"),
		metric.WithUnit("{simulation}"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordTransition records a state transition.
func (mp *MetricsProvider) RecordTransition(ctx context.Context, fromState, toState, trigger string) {
	mp.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state.from", fromState),
		attribute.String("state.to", toState),
		attribute.String("trigger", trigger),
	))
}

// RecordFallback records an oracle fallback.
func (mp *MetricsProvider) RecordFallback(ctx context.Context, oracle, trigger string) {
	mp.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("oracle.name", oracle),
		attribute.String("trigger", trigger),
	))
}

// RecordSkippedTurn records an aborted turn.
func (mp *MetricsProvider) RecordSkippedTurn(ctx context.Context, stage string) {
	mp.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordOracleLatency records the duration of one oracle consultation.
func (mp *MetricsProvider) RecordOracleLatency(ctx context.Context, oracle string, duration time.Duration, fallback bool) {
	mp.oracleDuration.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(
		attribute.String("oracle.name", oracle),
		attribute.Bool("fallback", fallback),
	))
}

// RecordRound records a completed round.
func (mp *MetricsProvider) RecordRound(ctx context.Context, round int, duration time.Duration) {
	mp.rounds.Add(ctx, 1)
	mp.roundDuration.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(
		attribute.Int("round", round),
	))
}

// RecordCheckpoint records a checkpoint write attempt.
func (mp *MetricsProvider) RecordCheckpoint(ctx context.Context, round int, success bool) {
	mp.checkpoints.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("round", round),
		attribute.Bool("success", success),
	))
}

// SimulationStarted increments the active simulations gauge.
func (mp *MetricsProvider) SimulationStarted(ctx context.Context, simulationID string) {
	mp.activeSimulations.Add(ctx, 1, metric.WithAttributes(attribute.String("simulation.id", simulationID)))
}

// SimulationFinished decrements the active simulations gauge.
func (mp *MetricsProvider) SimulationFinished(ctx context.Context, simulationID string, _ bool) {
	mp.activeSimulations.Add(ctx, -1, metric.WithAttributes(attribute.String("simulation.id", simulationID)))
}

// NoopMetrics is a no-op implementation for tests or when metrics are disabled.
type NoopMetrics struct{}

// RecordTransition is a no-op.
func (NoopMetrics) RecordTransition(context.Context, string, string, string) {}

// RecordFallback is a no-op.
func (NoopMetrics) RecordFallback(context.Context, string, string) {}

// RecordSkippedTurn is a no-op.
func (NoopMetrics) RecordSkippedTurn(context.Context, string) {}

// RecordOracleLatency is a no-op.
func (NoopMetrics) RecordOracleLatency(context.Context, string, time.Duration, bool) {}

// RecordRound is a no-op.
func (NoopMetrics) RecordRound(context.Context, int, time.Duration) {}

// RecordCheckpoint is a no-op.
func (NoopMetrics) RecordCheckpoint(context.Context, int, bool) {}

// SimulationStarted is a no-op.
func (NoopMetrics) SimulationStarted(context.Context, string) {}

// SimulationFinished is a no-op.
func (NoopMetrics) SimulationFinished(context.Context, string, bool) {}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetrics{}
)
