// Package badger provides a BadgerDB-backed decision log.
package badger

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/felixgeelhaar/agentsim/domain/config"
)

// Config configures BadgerDB storage.
type Config struct {
	// Dir is the directory to store data in.
	Dir string

	// InMemory uses in-memory storage (useful for testing).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// KeyPrefix is added to all keys.
	KeyPrefix string
}

// Option configures BadgerDB storage.
type Option func(*Config)

// WithInMemory enables in-memory storage.
func WithInMemory() Option {
	return func(c *Config) {
		c.InMemory = true
	}
}

// WithSyncWrites enables synchronous writes.
func WithSyncWrites() Option {
	return func(c *Config) {
		c.SyncWrites = true
	}
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// FromDecisionLog derives a Config from the decision_log section. An
// empty directory keeps the log in memory.
func FromDecisionLog(cfg config.DecisionLogConfig) Config {
	return Config{
		Dir:        cfg.Dir,
		InMemory:   cfg.Dir == "",
		SyncWrites: true,
	}
}

// ErrConnectionFailed indicates the database could not be opened.
var ErrConnectionFailed = errors.New("badger: connection failed")

func openDB(cfg Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)
	if cfg.InMemory || cfg.Dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}
