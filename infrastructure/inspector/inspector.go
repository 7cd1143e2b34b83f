// Package inspector exports transition tables, checkpoints and decision logs.
package inspector

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/inspector"
)

// DefaultInspector provides a default implementation of Inspector.
type DefaultInspector struct {
	stateMachineExporter inspector.StateMachineExporter
	checkpointExporter   inspector.CheckpointExporter
	decisionLogExporter  inspector.DecisionLogExporter
	formatters           map[inspector.ExportFormat]inspector.Formatter
}

// NewDefaultInspector creates a new default inspector. Any exporter may be nil.
func NewDefaultInspector(
	stateMachineExporter inspector.StateMachineExporter,
	checkpointExporter inspector.CheckpointExporter,
	decisionLogExporter inspector.DecisionLogExporter,
) *DefaultInspector {
	i := &DefaultInspector{
		stateMachineExporter: stateMachineExporter,
		checkpointExporter:   checkpointExporter,
		decisionLogExporter:  decisionLogExporter,
		formatters:           make(map[inspector.ExportFormat]inspector.Formatter),
	}

	i.RegisterFormatter(NewJSONFormatter(WithPrettyPrint()))
	i.RegisterFormatter(NewDOTFormatter())
	i.RegisterFormatter(NewMermaidFormatter())

	return i
}

// RegisterFormatter registers a formatter for a specific format.
func (i *DefaultInspector) RegisterFormatter(formatter inspector.Formatter) {
	i.formatters[formatter.FormatType()] = formatter
}

// ExportStateMachine exports the transition table graph.
func (i *DefaultInspector) ExportStateMachine(ctx context.Context, format inspector.ExportFormat) ([]byte, error) {
	if i.stateMachineExporter == nil {
		return nil, inspector.ErrExportFailed
	}
	data, err := i.stateMachineExporter.Export(ctx)
	if err != nil {
		return nil, err
	}
	return i.format(data, format)
}

// ExportCheckpoint exports a checkpoint summary.
func (i *DefaultInspector) ExportCheckpoint(ctx context.Context, ref string, format inspector.ExportFormat) ([]byte, error) {
	if i.checkpointExporter == nil {
		return nil, inspector.ErrExportFailed
	}
	data, err := i.checkpointExporter.Export(ctx, ref)
	if err != nil {
		return nil, err
	}
	return i.format(data, format)
}

// ExportDecisionLog exports a simulation's decision log.
func (i *DefaultInspector) ExportDecisionLog(ctx context.Context, simulationID string, format inspector.ExportFormat) ([]byte, error) {
	if i.decisionLogExporter == nil {
		return nil, inspector.ErrExportFailed
	}
	data, err := i.decisionLogExporter.Export(ctx, simulationID)
	if err != nil {
		return nil, err
	}
	return i.format(data, format)
}

func (i *DefaultInspector) format(data any, format inspector.ExportFormat) ([]byte, error) {
	formatter, ok := i.formatters[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", inspector.ErrInvalidFormat, format)
	}

	result, err := formatter.Format(data)
	if err != nil {
		return nil, fmt.Errorf("formatting failed: %w", err)
	}
	return result, nil
}

// Ensure DefaultInspector implements inspector.Inspector
var _ inspector.Inspector = (*DefaultInspector)(nil)
