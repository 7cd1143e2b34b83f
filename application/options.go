package application

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	"github.com/felixgeelhaar/agentsim/domain/oracle"
	"github.com/felixgeelhaar/agentsim/infrastructure/telemetry"
)

// ControllerConfig configures the round controller.
type ControllerConfig struct {
	// Model is the transition table and trigger rules. Defaults to DefaultModel.
	Model *Model

	// Oracle resolves ambiguous triggers. Defaults to the rule oracle.
	Oracle oracle.Oracle

	// OracleTimeout bounds each oracle consultation. An oracle that has not
	// answered by then yields the first candidate. Defaults to DefaultOracleTimeout.
	OracleTimeout time.Duration

	// Supplier ranks candidate items. Defaults to the content ranker.
	Supplier feed.Supplier

	// FeedLimit caps the candidates offered per turn. Zero means no cap.
	FeedLimit int

	// Checkpoints persists population snapshots. Nil disables checkpointing.
	Checkpoints checkpoint.Store

	// CheckpointFrequency saves after every round divisible by it.
	CheckpointFrequency int

	// Publisher receives the decision log. Nil discards it.
	Publisher event.Publisher

	// Clock stamps decisions, events and checkpoints.
	Clock func() time.Time

	// Metrics receives simulation telemetry.
	Metrics telemetry.Metrics

	// Tracer starts one span per round. Defaults to a no-op tracer.
	Tracer trace.Tracer

	// Middleware wraps every turn, outermost first.
	Middleware []TurnMiddleware
}

// Option configures the controller.
type Option func(*ControllerConfig)

// WithModel sets the transition model.
func WithModel(m *Model) Option {
	return func(c *ControllerConfig) {
		c.Model = m
	}
}

// WithOracle sets the decision oracle.
func WithOracle(o oracle.Oracle) Option {
	return func(c *ControllerConfig) {
		c.Oracle = o
	}
}

// WithOracleTimeout bounds each oracle consultation.
func WithOracleTimeout(d time.Duration) Option {
	return func(c *ControllerConfig) {
		c.OracleTimeout = d
	}
}

// WithSupplier sets the candidate supplier.
func WithSupplier(s feed.Supplier) Option {
	return func(c *ControllerConfig) {
		c.Supplier = s
	}
}

// WithFeedLimit caps the candidates per turn.
func WithFeedLimit(n int) Option {
	return func(c *ControllerConfig) {
		c.FeedLimit = n
	}
}

// WithCheckpointStore enables checkpointing into s.
func WithCheckpointStore(s checkpoint.Store) Option {
	return func(c *ControllerConfig) {
		c.Checkpoints = s
	}
}

// WithCheckpointFrequency sets how many rounds pass between checkpoints.
func WithCheckpointFrequency(n int) Option {
	return func(c *ControllerConfig) {
		c.CheckpointFrequency = n
	}
}

// WithPublisher sets the decision log publisher.
func WithPublisher(p event.Publisher) Option {
	return func(c *ControllerConfig) {
		c.Publisher = p
	}
}

// WithClock sets the clock.
func WithClock(now func() time.Time) Option {
	return func(c *ControllerConfig) {
		c.Clock = now
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *ControllerConfig) {
		c.Metrics = m
	}
}

// WithTracer sets the tracer for round spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *ControllerConfig) {
		c.Tracer = t
	}
}

// WithTurnMiddleware appends turn middleware.
func WithTurnMiddleware(mws ...TurnMiddleware) Option {
	return func(c *ControllerConfig) {
		c.Middleware = append(c.Middleware, mws...)
	}
}
