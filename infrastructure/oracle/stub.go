package oracle

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	domain "github.com/felixgeelhaar/agentsim/domain/oracle"
)

// StubOracle returns a fixed answer or a fixed error. It records the
// requests it receives.
type StubOracle struct {
	answer agent.State
	err    error

	mu       sync.Mutex
	requests []domain.Request
}

// NewStubOracle creates an oracle that always answers target.
func NewStubOracle(target agent.State) *StubOracle {
	return &StubOracle{answer: target}
}

// NewFailingOracle creates an oracle that always fails with err.
func NewFailingOracle(err error) *StubOracle {
	return &StubOracle{err: err}
}

// Name returns "stub".
func (s *StubOracle) Name() string {
	return "stub"
}

// Decide implements the domain oracle.
func (s *StubOracle) Decide(ctx context.Context, req domain.Request) (agent.State, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

// Requests returns the requests received so far.
func (s *StubOracle) Requests() []domain.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Request, len(s.requests))
	copy(out, s.requests)
	return out
}
