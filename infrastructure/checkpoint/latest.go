package checkpoint

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
	"github.com/felixgeelhaar/agentsim/infrastructure/logging"
)

// latest walks the store from the newest checkpoint backwards. Checkpoints
// that fail to decode or to rebuild a population are logged and skipped.
// A version mismatch stops the walk.
func latest(ctx context.Context, store checkpoint.Store) (*checkpoint.Checkpoint, error) {
	infos, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := len(infos) - 1; i >= 0; i-- {
		c, err := store.Load(ctx, infos[i].Ref)
		if err == nil {
			_, err = c.Population()
		}
		switch {
		case err == nil:
			return c, nil
		case errors.Is(err, checkpoint.ErrCorrupt):
			logging.Warn().
				Add(logging.Component("checkpoint")).
				Add(logging.Round(infos[i].RoundNumber)).
				Add(logging.ErrorField(err)).
				Msg("skipping corrupt checkpoint")
		default:
			return nil, err
		}
	}
	return nil, checkpoint.ErrNotFound
}
