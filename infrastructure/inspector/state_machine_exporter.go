package inspector

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/domain/inspector"
	"github.com/felixgeelhaar/agentsim/domain/statechart"
)

// StateMachineExporter exports an engine's transition table.
type StateMachineExporter[C any] struct {
	engine       *statechart.Engine[C]
	descriptions map[agent.State]string
	log          event.Store
	simulationID string
}

// StateMachineOption configures the exporter.
type StateMachineOption[C any] func(*StateMachineExporter[C])

// WithDescriptions attaches human-readable state descriptions.
func WithDescriptions[C any](d map[agent.State]string) StateMachineOption[C] {
	return func(e *StateMachineExporter[C]) {
		e.descriptions = d
	}
}

// WithTransitionCounts fills transition counts from a simulation's decision log.
func WithTransitionCounts[C any](log event.Store, simulationID string) StateMachineOption[C] {
	return func(e *StateMachineExporter[C]) {
		e.log = log
		e.simulationID = simulationID
	}
}

// NewStateMachineExporter creates a new state machine exporter.
func NewStateMachineExporter[C any](engine *statechart.Engine[C], opts ...StateMachineOption[C]) *StateMachineExporter[C] {
	e := &StateMachineExporter[C]{engine: engine}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export exports the state machine.
func (e *StateMachineExporter[C]) Export(ctx context.Context) (*inspector.StateMachineExport, error) {
	counts, err := e.counts(ctx)
	if err != nil {
		return nil, err
	}

	export := &inspector.StateMachineExport{Initial: agent.InitialState}

	for _, s := range e.engine.States() {
		se := inspector.StateExport{
			Name:        s,
			Description: e.descriptions[s],
			Triggers:    e.engine.ValidTriggers(s),
		}
		for _, trig := range se.Triggers {
			if e.engine.IsAmbiguous(s, trig) {
				se.Ambiguous = append(se.Ambiguous, trig)
			}
		}
		export.States = append(export.States, se)
	}

	for _, t := range e.engine.Transitions() {
		export.Transitions = append(export.Transitions, inspector.StateMachineTransition{
			From:    t.Source,
			To:      t.Target,
			Trigger: t.Trigger,
			Guard:   guardLabel(t),
			Action:  t.ActionName,
			Count:   counts[edge{t.Trigger, t.Source, t.Target}],
		})
	}

	return export, nil
}

type edge struct {
	trigger  string
	from, to agent.State
}

func (e *StateMachineExporter[C]) counts(ctx context.Context) (map[edge]int, error) {
	if e.log == nil {
		return nil, nil
	}
	events, err := e.log.LoadEvents(ctx, e.simulationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", inspector.ErrExportFailed, err)
	}
	out := make(map[edge]int)
	for _, ev := range events {
		if ev.Type != event.TypeDecisionRecorded {
			continue
		}
		var p event.DecisionRecordedPayload
		if err := ev.UnmarshalPayload(&p); err != nil {
			return nil, fmt.Errorf("%w: event %s: %w", inspector.ErrExportFailed, ev.ID, err)
		}
		if p.Transitioned {
			out[edge{p.Trigger, p.FromState, p.ToState}]++
		}
	}
	return out, nil
}

func guardLabel[C any](t statechart.Transition[C]) string {
	if !t.Guarded() {
		return ""
	}
	if t.GuardName != "" {
		return t.GuardName
	}
	return "guard"
}
