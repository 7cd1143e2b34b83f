package inspector

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
	"github.com/felixgeelhaar/agentsim/domain/inspector"
)

// CheckpointExporter summarises checkpoints held in a store.
type CheckpointExporter struct {
	store checkpoint.Store
}

// NewCheckpointExporter creates a new checkpoint exporter.
func NewCheckpointExporter(store checkpoint.Store) *CheckpointExporter {
	return &CheckpointExporter{store: store}
}

// Export loads the referenced checkpoint, or the latest valid one when ref is empty.
func (e *CheckpointExporter) Export(ctx context.Context, ref string) (*inspector.CheckpointExport, error) {
	var (
		cp  *checkpoint.Checkpoint
		err error
	)
	if ref == "" {
		cp, err = e.store.Latest(ctx)
		ref = "latest"
	} else {
		cp, err = e.store.Load(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", inspector.ErrExportFailed, err)
	}
	return SummariseCheckpoint(ref, cp), nil
}

// SummariseCheckpoint builds the export from a loaded checkpoint.
func SummariseCheckpoint(ref string, cp *checkpoint.Checkpoint) *inspector.CheckpointExport {
	out := &inspector.CheckpointExport{
		Ref:           ref,
		SimulationID:  cp.SimulationID,
		SchemaVersion: cp.SchemaVersion,
		RoundNumber:   cp.RoundNumber,
		CreatedAt:     cp.CreatedAt,
		Distribution:  make(map[agent.State]int),
		Counters:      cp.GlobalMetrics,
		Posts:         len(cp.Content.Posts),
	}
	for _, a := range cp.Agents {
		ae := inspector.AgentExport{
			ID:           a.ID,
			State:        a.CurrentState,
			TicksInState: a.TicksInState,
			History:      len(a.History),
		}
		if n := len(a.History); n > 0 {
			ae.LastTrigger = a.History[n-1].Trigger
		}
		out.Agents = append(out.Agents, ae)
		out.Distribution[a.CurrentState]++
	}
	return out
}

// Ensure CheckpointExporter implements inspector.CheckpointExporter
var _ inspector.CheckpointExporter = (*CheckpointExporter)(nil)
