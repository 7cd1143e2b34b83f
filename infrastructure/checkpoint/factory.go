package checkpoint

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
	"github.com/felixgeelhaar/agentsim/domain/config"
)

// Open returns the configured store and a closer for its resources.
func Open(cfg config.CheckpointConfig) (checkpoint.Store, io.Closer, error) {
	switch cfg.Backend {
	case "", config.CheckpointFile:
		s, err := NewFileStore(cfg.Directory)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case config.CheckpointBadger:
		s, err := NewBadgerStore(BadgerConfig{Dir: cfg.Directory, SyncWrites: true})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w: checkpoint backend %q", config.ErrValidationFailed, cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
