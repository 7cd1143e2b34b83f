package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	"github.com/felixgeelhaar/agentsim/domain/oracle"
	"github.com/felixgeelhaar/agentsim/domain/population"
	"github.com/felixgeelhaar/agentsim/domain/statechart"
	"github.com/felixgeelhaar/agentsim/domain/trigger"
	"github.com/felixgeelhaar/agentsim/infrastructure/logging"
	"github.com/felixgeelhaar/agentsim/infrastructure/telemetry"
)

// Stage names a step of the decision pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageFetch  Stage = "fetch"
	StageDecide Stage = "decide"
	StageApply  Stage = "apply"
	StageRecord Stage = "record"
)

// ErrTurnSkipped marks an agent turn aborted by a stage failure.
var ErrTurnSkipped = errors.New("agent turn skipped")

// StageError reports the stage that aborted a turn.
type StageError struct {
	Stage   Stage
	AgentID string
	Err     error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed for %s: %v", e.Stage, e.AgentID, e.Err)
}

// Unwrap exposes both ErrTurnSkipped and the cause.
func (e *StageError) Unwrap() []error {
	return []error{ErrTurnSkipped, e.Err}
}

// Candidates is the output of the fetch stage.
type Candidates struct {
	Items []feed.Item
}

// Decision is the output of the decide stage.
type Decision struct {
	Trigger    string
	Transition statechart.Transition[*TurnContext]
	Fired      bool

	// Targets is set when the trigger was ambiguous.
	Targets    []agent.State
	Resolution *oracle.Resolution
	Latency    time.Duration
}

// Fallback reports whether the oracle failed and the first candidate was used.
func (d Decision) Fallback() bool {
	return d.Resolution != nil && d.Resolution.Fallback
}

// Outcome is the output of the apply stage.
type Outcome struct {
	Round        int
	AgentID      string
	Decision     Decision
	From         agent.State
	To           agent.State
	Transitioned bool
	Action       string
	Candidates   int
	At           time.Time
}

// TurnResult summarises one agent turn.
type TurnResult struct {
	Outcome Outcome
	Skipped *StageError
}

// decisionLog is the part of the event recorder the pipeline needs.
type decisionLog interface {
	Record(ctx context.Context, eventType event.Type, payload any) error
}

type nopDecisionLog struct{}

func (nopDecisionLog) Record(context.Context, event.Type, any) error { return nil }

// Pipeline runs fetch, decide, apply and record for one agent.
type Pipeline struct {
	model         *Model
	oracle        oracle.Oracle
	oracleTimeout time.Duration
	supplier      feed.Supplier
	feedLimit     int
	now           func() time.Time
	metrics       telemetry.Metrics
	log           decisionLog
}

func newPipeline(cfg *ControllerConfig, log decisionLog) *Pipeline {
	if log == nil {
		log = nopDecisionLog{}
	}
	return &Pipeline{
		model:         cfg.Model,
		oracle:        cfg.Oracle,
		oracleTimeout: cfg.OracleTimeout,
		supplier:      cfg.Supplier,
		feedLimit:     cfg.FeedLimit,
		now:           cfg.Clock,
		metrics:       cfg.Metrics,
		log:           log,
	}
}

// RunTurn runs the pipeline for one agent. A stage failure skips the turn
// and is reported in the result; the returned error is reserved for
// failures that must stop the simulation.
func (p *Pipeline) RunTurn(ctx context.Context, turn Turn) (TurnResult, error) {
	tc := &TurnContext{
		Agent:      turn.Agent,
		Population: turn.Population,
		Round:      turn.Round,
		Now:        p.now(),
	}

	cands, err := p.fetch(ctx, turn)
	if err != nil {
		return p.skip(ctx, turn, StageFetch, err, nil)
	}
	tc.Items = cands.Items

	d := p.decide(ctx, turn, tc)
	if d.Fallback() {
		turn.Population.Incr(population.CounterFallbacks, 1)
	}

	out, err := p.apply(turn, tc, d)
	if err != nil {
		return p.skip(ctx, turn, StageApply, err, &d)
	}

	if err := p.record(ctx, out); err != nil {
		return TurnResult{Outcome: out}, err
	}
	return TurnResult{Outcome: out}, nil
}

func (p *Pipeline) fetch(ctx context.Context, turn Turn) (Candidates, error) {
	view := feed.View{
		Round:  turn.Round,
		Turn:   turn.Index,
		Agents: turn.Population.Len(),
		Limit:  p.feedLimit,
		Posts:  turn.Population.Content().Posts(),
	}
	items, err := p.supplier.Candidates(ctx, turn.Agent.ID(), view)
	if err != nil {
		if !errors.Is(err, feed.ErrSupplierUnavailable) {
			err = fmt.Errorf("%w: %w", feed.ErrSupplierUnavailable, err)
		}
		return Candidates{}, err
	}
	return Candidates{Items: items}, nil
}

// decide resolves the trigger and asks the engine for a transition. The
// oracle is consulted only when the trigger has more than one target, under
// the oracle timeout, and its answer is passed as a preference so guards
// still apply.
func (p *Pipeline) decide(ctx context.Context, turn Turn, tc *TurnContext) Decision {
	rt := turn.Agent
	current := rt.CurrentState()
	d := Decision{
		Trigger: p.model.Resolver.Resolve(rt, trigger.RoundContext{
			Round:          turn.Round,
			CandidateCount: len(tc.Items),
		}),
	}

	targets := p.model.Engine.ValidTargets(current, d.Trigger)
	if len(targets) < 2 {
		d.Transition, d.Fired = p.model.Engine.Fire(d.Trigger, current, tc)
		return d
	}

	d.Targets = targets
	octx := ctx
	if p.oracleTimeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, p.oracleTimeout)
		defer cancel()
	}
	start := time.Now()
	res := oracle.Resolve(octx, p.oracle, oracle.Request{
		AgentID:             rt.ID(),
		Round:               turn.Round,
		Current:             current,
		Trigger:             d.Trigger,
		Candidates:          targets,
		Items:               tc.Items,
		EngagementThreshold: rt.EngagementThreshold(),
		TicksInState:        rt.TicksInState(),
	})
	d.Latency = time.Since(start)
	d.Resolution = &res
	p.metrics.RecordOracleLatency(ctx, res.Oracle, d.Latency, res.Fallback)

	d.Transition, d.Fired = p.model.Engine.FirePreferring(d.Trigger, current, res.Target, tc)
	return d
}

// apply mutates the agent and the population. The transition's action
// runs before the state change so a failing action leaves the agent as it was.
func (p *Pipeline) apply(turn Turn, tc *TurnContext, d Decision) (Outcome, error) {
	rt := turn.Agent
	pop := turn.Population
	out := Outcome{
		Round:      turn.Round,
		AgentID:    rt.ID(),
		Decision:   d,
		From:       rt.CurrentState(),
		To:         rt.CurrentState(),
		Candidates: len(tc.Items),
		At:         tc.Now,
	}

	if !d.Fired {
		rt.Tick()
		pop.Incr(population.CounterTicks, 1)
		return out, nil
	}

	t := d.Transition
	if t.HasAction() {
		if err := t.Action(tc); err != nil {
			return out, fmt.Errorf("action %s: %w", t.ActionName, err)
		}
		out.Action = t.ActionName
		pop.Incr(population.CounterActionPrefix+t.ActionName, 1)
	}
	if err := rt.TransitionTo(t.Target, d.Trigger, turn.Round, tc.Now); err != nil {
		return out, err
	}
	pop.Incr(population.CounterTransitions, 1)

	out.To = t.Target
	out.Transitioned = true
	return out, nil
}

func (p *Pipeline) record(ctx context.Context, out Outcome) error {
	d := out.Decision
	oracleName := ""
	if d.Resolution != nil {
		oracleName = d.Resolution.Oracle
	}

	if d.Fallback() {
		if err := p.recordFallback(ctx, out.Round, out.AgentID, d); err != nil {
			return err
		}
	}

	if err := p.log.Record(ctx, event.TypeDecisionRecorded, event.DecisionRecordedPayload{
		RoundNumber:  out.Round,
		AgentID:      out.AgentID,
		Trigger:      d.Trigger,
		FromState:    out.From,
		ToState:      out.To,
		Transitioned: out.Transitioned,
		ChosenAction: out.Action,
		Timestamp:    out.At,
		Fallback:     d.Fallback(),
		Oracle:       oracleName,
		Candidates:   out.Candidates,
	}); err != nil {
		return fmt.Errorf("%s stage: %w", StageRecord, err)
	}

	if out.Transitioned {
		p.metrics.RecordTransition(ctx, string(out.From), string(out.To), d.Trigger)
	}

	logging.Debug().
		Add(logging.Round(out.Round)).
		Add(logging.AgentID(out.AgentID)).
		Add(logging.Trigger(d.Trigger)).
		Add(logging.FromState(out.From)).
		Add(logging.ToState(out.To)).
		Add(logging.Action(out.Action)).
		Add(logging.Candidates(out.Candidates)).
		Msg("decision recorded")
	return nil
}

func (p *Pipeline) recordFallback(ctx context.Context, round int, agentID string, d Decision) error {
	res := d.Resolution
	reason := ""
	if res.Reason != nil {
		reason = res.Reason.Error()
	}

	logging.Warn().
		Add(logging.Round(round)).
		Add(logging.AgentID(agentID)).
		Add(logging.Trigger(d.Trigger)).
		Add(logging.Oracle(res.Oracle)).
		Add(logging.ToState(res.Target)).
		Add(logging.ErrorField(res.Reason)).
		Msg("oracle failed, using first candidate")
	p.metrics.RecordFallback(ctx, res.Oracle, d.Trigger)

	if err := p.log.Record(ctx, event.TypeOracleFallback, event.OracleFallbackPayload{
		RoundNumber: round,
		AgentID:     agentID,
		Trigger:     d.Trigger,
		Candidates:  d.Targets,
		Chosen:      res.Target,
		Oracle:      res.Oracle,
		Reason:      reason,
	}); err != nil {
		return fmt.Errorf("%s stage: %w", StageRecord, err)
	}
	return nil
}

// skip records an aborted turn. The agent neither ticks nor transitions.
func (p *Pipeline) skip(ctx context.Context, turn Turn, stage Stage, cause error, d *Decision) (TurnResult, error) {
	se := &StageError{Stage: stage, AgentID: turn.Agent.ID(), Err: cause}
	turn.Population.Incr(population.CounterSkipped, 1)
	result := TurnResult{
		Outcome: Outcome{
			Round:   turn.Round,
			AgentID: turn.Agent.ID(),
			From:    turn.Agent.CurrentState(),
			To:      turn.Agent.CurrentState(),
		},
		Skipped: se,
	}
	if d != nil {
		result.Outcome.Decision = *d
	}

	if d != nil && d.Fallback() {
		if err := p.recordFallback(ctx, turn.Round, turn.Agent.ID(), *d); err != nil {
			return result, err
		}
	}

	logging.Warn().
		Add(logging.Round(turn.Round)).
		Add(logging.AgentID(turn.Agent.ID())).
		Add(logging.State(turn.Agent.CurrentState())).
		Add(logging.Str("stage", string(stage))).
		Add(logging.ErrorField(cause)).
		Msg("agent turn skipped")
	p.metrics.RecordSkippedTurn(ctx, string(stage))

	if err := p.log.Record(ctx, event.TypeTurnSkipped, event.TurnSkippedPayload{
		RoundNumber: turn.Round,
		AgentID:     turn.Agent.ID(),
		State:       turn.Agent.CurrentState(),
		Stage:       string(stage),
		Error:       cause.Error(),
	}); err != nil {
		return result, fmt.Errorf("%s stage: %w", StageRecord, err)
	}
	return result, nil
}
