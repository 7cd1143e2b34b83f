// Package storage opens the configured decision log backend.
package storage

import (
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/config"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/infrastructure/storage/badger"
	"github.com/felixgeelhaar/agentsim/infrastructure/storage/memory"
	"github.com/felixgeelhaar/agentsim/infrastructure/storage/redis"
	"github.com/felixgeelhaar/agentsim/infrastructure/storage/sqlite"
)

// Open returns the decision log store selected by cfg. A nil store with a
// nil error means the decision log is disabled.
func Open(cfg config.DecisionLogConfig) (event.Store, error) {
	switch cfg.Backend {
	case "", config.LogMemory:
		return memory.NewEventStore(), nil
	case config.LogNone:
		return nil, nil
	case config.LogBadger:
		return nonNil(badger.NewEventStore(badger.FromDecisionLog(cfg)))
	case config.LogSQLite:
		return nonNil(sqlite.NewEventStore(sqlite.FromDecisionLog(cfg)))
	case config.LogRedis:
		return nonNil(redis.NewEventStore(redis.FromDecisionLog(cfg)))
	default:
		return nil, fmt.Errorf("%w: decision log backend %q", config.ErrValidationFailed, cfg.Backend)
	}
}

// nonNil keeps a failed constructor from yielding a non-nil interface
// holding a nil pointer.
func nonNil[S event.Store](s S, err error) (event.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
