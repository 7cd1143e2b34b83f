// Package observability exports OpenTelemetry spans for simulation rounds and turns.
package observability

import (
	"io"
	"time"

	domainconfig "github.com/felixgeelhaar/agentsim/domain/config"
)

// Config configures span export.
type Config struct {
	// ServiceName is the name of the service for telemetry.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Environment is the deployment environment (e.g., "production", "staging").
	Environment string

	// Tracing configures span export.
	Tracing TracingConfig
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Enabled enables tracing (default: false).
	Enabled bool

	// Exporter specifies the trace exporter type.
	Exporter ExporterType

	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// Insecure disables TLS for the exporter connection.
	Insecure bool

	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer

	// SampleRate is the sampling rate (0.0-1.0, default: 1.0).
	SampleRate float64

	// BatchTimeout is the batch export timeout.
	BatchTimeout time.Duration

	// MaxExportBatchSize is the maximum batch size.
	MaxExportBatchSize int
}

// ExporterType specifies the span exporter.
type ExporterType string

const (
	// ExporterOTLP exports to an OTLP gRPC endpoint (e.g., Jaeger, Tempo).
	ExporterOTLP ExporterType = "otlp"

	// ExporterStdout writes spans as JSON.
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop disables export.
	ExporterNoop ExporterType = "noop"
)

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "agentsim",
		ServiceVersion: "0.0.0",
		Environment:    "development",
		Tracing: TracingConfig{
			Enabled:            false,
			Exporter:           ExporterNoop,
			SampleRate:         1.0,
			BatchTimeout:       5 * time.Second,
			MaxExportBatchSize: 512,
		},
	}
}

// Option configures the observability infrastructure.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithEnvironment sets the environment.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithTracing enables tracing with the specified exporter.
func WithTracing(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = exporter
		c.Tracing.Endpoint = endpoint
	}
}

// WithTracingInsecure disables TLS for tracing.
func WithTracingInsecure() Option {
	return func(c *Config) {
		c.Tracing.Insecure = true
	}
}

// WithSampleRate sets the trace sampling rate.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.Tracing.SampleRate = rate
	}
}

// WithStdoutTracing writes spans to w, or os.Stdout when w is nil.
func WithStdoutTracing(w io.Writer) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = ExporterStdout
		c.Tracing.Writer = w
	}
}

// FromConfig maps the tracing section of a simulation file to options.
func FromConfig(cfg domainconfig.TracingConfig) []Option {
	var opts []Option
	switch cfg.Exporter {
	case domainconfig.TraceStdout:
		opts = append(opts, WithStdoutTracing(nil))
	case domainconfig.TraceOTLP:
		opts = append(opts, WithTracing(ExporterOTLP, cfg.Endpoint))
		if cfg.Insecure {
			opts = append(opts, WithTracingInsecure())
		}
	default:
		return nil
	}
	return append(opts, WithSampleRate(cfg.SampleRate))
}
