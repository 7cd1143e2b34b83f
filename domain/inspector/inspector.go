package inspector

import "context"

// Inspector exports simulation data for visualization and analysis.
type Inspector interface {
	// ExportStateMachine exports the transition table graph.
	ExportStateMachine(ctx context.Context, format ExportFormat) ([]byte, error)

	// ExportCheckpoint exports a checkpoint summary. An empty ref means the latest.
	ExportCheckpoint(ctx context.Context, ref string, format ExportFormat) ([]byte, error)

	// ExportDecisionLog exports a simulation's decision log.
	ExportDecisionLog(ctx context.Context, simulationID string, format ExportFormat) ([]byte, error)
}

// StateMachineExporter exports state machine data.
type StateMachineExporter interface {
	Export(ctx context.Context) (*StateMachineExport, error)
}

// CheckpointExporter exports checkpoint data.
type CheckpointExporter interface {
	Export(ctx context.Context, ref string) (*CheckpointExport, error)
}

// DecisionLogExporter exports decision log data.
type DecisionLogExporter interface {
	Export(ctx context.Context, simulationID string) (*DecisionLogExport, error)
}

// Formatter formats export data to a specific format.
type Formatter interface {
	// Format formats the data.
	Format(data any) ([]byte, error)

	// FormatType returns the format type.
	FormatType() ExportFormat
}
