package application

import (
	"context"

	"github.com/felixgeelhaar/agentsim/domain/inspector"
)

// InspectionService provides inspection and export capabilities.
type InspectionService struct {
	inspector inspector.Inspector
}

// NewInspectionService creates a new inspection service.
func NewInspectionService(insp inspector.Inspector) *InspectionService {
	return &InspectionService{
		inspector: insp,
	}
}

// ExportStateMachine exports the transition table graph.
func (s *InspectionService) ExportStateMachine(ctx context.Context, format inspector.ExportFormat) ([]byte, error) {
	if s.inspector == nil {
		return nil, inspector.ErrExportFailed
	}
	return s.inspector.ExportStateMachine(ctx, format)
}

// ExportCheckpoint exports a checkpoint summary. An empty ref means the latest.
func (s *InspectionService) ExportCheckpoint(ctx context.Context, ref string, format inspector.ExportFormat) ([]byte, error) {
	if s.inspector == nil {
		return nil, inspector.ErrExportFailed
	}
	return s.inspector.ExportCheckpoint(ctx, ref, format)
}

// ExportDecisionLog exports a simulation's decision log.
func (s *InspectionService) ExportDecisionLog(ctx context.Context, simulationID string, format inspector.ExportFormat) ([]byte, error) {
	if s.inspector == nil {
		return nil, inspector.ErrExportFailed
	}
	return s.inspector.ExportDecisionLog(ctx, simulationID, format)
}

// GetStateMachineAsDOT exports the state machine as DOT graph (convenience method).
func (s *InspectionService) GetStateMachineAsDOT(ctx context.Context) ([]byte, error) {
	return s.ExportStateMachine(ctx, inspector.FormatDOT)
}

// GetStateMachineAsMermaid exports the state machine as Mermaid diagram (convenience method).
func (s *InspectionService) GetStateMachineAsMermaid(ctx context.Context) ([]byte, error) {
	return s.ExportStateMachine(ctx, inspector.FormatMermaid)
}

// GetLatestCheckpointAsJSON exports the newest checkpoint summary as JSON (convenience method).
func (s *InspectionService) GetLatestCheckpointAsJSON(ctx context.Context) ([]byte, error) {
	return s.ExportCheckpoint(ctx, "", inspector.FormatJSON)
}
