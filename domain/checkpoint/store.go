package checkpoint

import "context"

// Store persists checkpoints. Save must be atomic: a reader never observes
// a partially written checkpoint.
type Store interface {
	// Save persists the checkpoint and returns a reference to it.
	Save(ctx context.Context, c *Checkpoint) (string, error)

	// Load reads a checkpoint by reference.
	Load(ctx context.Context, ref string) (*Checkpoint, error)

	// Latest returns the most recent valid checkpoint. Corrupt checkpoints
	// are skipped; a version mismatch is returned as an error.
	Latest(ctx context.Context) (*Checkpoint, error)

	// ForRound returns the checkpoint taken after the given round.
	ForRound(ctx context.Context, round int) (*Checkpoint, error)

	// List returns the stored checkpoints ordered by round.
	List(ctx context.Context) ([]Info, error)
}
