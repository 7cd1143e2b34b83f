package oracle

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/config"
	domain "github.com/felixgeelhaar/agentsim/domain/oracle"
	"github.com/felixgeelhaar/agentsim/infrastructure/resilience"
)

// FromConfig builds the configured oracle wrapped in the resilient executor.
func FromConfig(cfg config.OracleConfig) (domain.Oracle, error) {
	var inner domain.Oracle
	switch cfg.Kind {
	case "", config.OracleRule:
		inner = NewRuleOracle()
	case config.OracleStub:
		s, err := agent.ParseState(cfg.Answer)
		if err != nil {
			return nil, fmt.Errorf("stub oracle answer: %w", err)
		}
		inner = NewStubOracle(s)
	case config.OracleOllama:
		inner = NewLLMOracle(LLMOracleConfig{
			Provider:    NewOllamaProvider(OllamaConfig{BaseURL: cfg.BaseURL, Model: cfg.Model}),
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
	case config.OracleOpenAI:
		inner = NewLLMOracle(LLMOracleConfig{
			Provider:    NewOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}),
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("%w: oracle kind %q", config.ErrValidationFailed, cfg.Kind)
	}
	return NewResilientOracle(inner, ExecutorConfig(cfg.Resilience)), nil
}

// ExecutorConfig maps resilience settings onto the executor configuration.
func ExecutorConfig(r config.ResilienceConfig) resilience.ExecutorConfig {
	ec := resilience.DefaultExecutorConfig()
	if t := time.Duration(r.Timeout); t > 0 {
		ec.Timeout = t
	}
	if r.Retry.MaxAttempts > 0 {
		ec.RetryMaxAttempts = r.Retry.MaxAttempts
	}
	if d := time.Duration(r.Retry.InitialDelay); d > 0 {
		ec.RetryInitialDelay = d
	}
	if r.Retry.Multiplier > 0 {
		ec.RetryBackoffMultiplier = r.Retry.Multiplier
	}
	if r.CircuitBreaker.Threshold > 0 {
		ec.CircuitBreakerThreshold = r.CircuitBreaker.Threshold
	}
	if d := time.Duration(r.CircuitBreaker.Timeout); d > 0 {
		ec.CircuitBreakerTimeout = d
	}
	return ec
}
