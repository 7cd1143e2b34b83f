package inspector

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/domain/inspector"
)

// DecisionLogExporter reads a simulation's decision log.
type DecisionLogExporter struct {
	store event.Store
}

// NewDecisionLogExporter creates a new decision log exporter.
func NewDecisionLogExporter(store event.Store) *DecisionLogExporter {
	return &DecisionLogExporter{store: store}
}

// Export summarises the decision log of simulationID.
func (e *DecisionLogExporter) Export(ctx context.Context, simulationID string) (*inspector.DecisionLogExport, error) {
	events, err := e.store.LoadEvents(ctx, simulationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", inspector.ErrExportFailed, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %w: %s", inspector.ErrNoData, event.ErrSimulationNotFound, simulationID)
	}

	out := &inspector.DecisionLogExport{
		SimulationID: simulationID,
		Events:       len(events),
	}
	for _, ev := range events {
		if err := summarise(out, ev); err != nil {
			return nil, fmt.Errorf("%w: event %s: %w", inspector.ErrExportFailed, ev.ID, err)
		}
	}
	return out, nil
}

func summarise(out *inspector.DecisionLogExport, ev event.Event) error {
	switch ev.Type {
	case event.TypeDecisionRecorded:
		var p event.DecisionRecordedPayload
		if err := ev.UnmarshalPayload(&p); err != nil {
			return err
		}
		out.Decisions = append(out.Decisions, inspector.DecisionExport{
			Round:    p.RoundNumber,
			AgentID:  p.AgentID,
			Trigger:  p.Trigger,
			From:     p.FromState,
			To:       p.ToState,
			Action:   p.ChosenAction,
			Fallback: p.Fallback,
		})
	case event.TypeOracleFallback:
		out.Fallbacks++
	case event.TypeTurnSkipped:
		out.Skipped++
	case event.TypeRoundCompleted:
		var p event.RoundCompletedPayload
		if err := ev.UnmarshalPayload(&p); err != nil {
			return err
		}
		out.Rounds = max(out.Rounds, p.RoundNumber)
	case event.TypeCheckpointSaved:
		var p event.CheckpointSavedPayload
		if err := ev.UnmarshalPayload(&p); err != nil {
			return err
		}
		out.Checkpoints = append(out.Checkpoints, p.Ref)
	case event.TypeSimulationCompleted:
		out.Outcome = "completed"
	case event.TypeSimulationFailed:
		out.Outcome = "failed"
	}
	return nil
}

// Ensure DecisionLogExporter implements inspector.DecisionLogExporter
var _ inspector.DecisionLogExporter = (*DecisionLogExporter)(nil)
