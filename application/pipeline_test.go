package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	"github.com/felixgeelhaar/agentsim/domain/oracle"
	"github.com/felixgeelhaar/agentsim/domain/population"
	"github.com/felixgeelhaar/agentsim/domain/statechart"
)

var pipelineTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingLog struct {
	types []event.Type
	err   error
}

func (l *recordingLog) Record(_ context.Context, t event.Type, _ any) error {
	if l.err != nil {
		return l.err
	}
	l.types = append(l.types, t)
	return nil
}

func newTestPipeline(t *testing.T, log decisionLog, opts ...Option) *Pipeline {
	t.Helper()

	opts = append([]Option{WithClock(func() time.Time { return pipelineTime })}, opts...)
	c, err := NewController(opts...)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return newPipeline(&c.config, log)
}

func newTestTurn(t *testing.T, state agent.State, seedItems int) Turn {
	t.Helper()

	pop, err := population.New("sim", []population.AgentSpec{{ID: "a", Settings: agent.DefaultSettings()}}, seedItems)
	if err != nil {
		t.Fatalf("population.New() error = %v", err)
	}
	rt, _ := pop.Agent("a")
	if state != agent.InitialState {
		if err := rt.TransitionTo(state, "setup", 0, pipelineTime); err != nil {
			t.Fatalf("TransitionTo() error = %v", err)
		}
	}
	return Turn{Agent: rt, Population: pop, Round: 1}
}

func TestPipeline_NothingFiresTicks(t *testing.T) {
	t.Parallel()

	log := &recordingLog{}
	p := newTestPipeline(t, log)
	turn := newTestTurn(t, agent.StateResting, 0)

	res, err := p.RunTurn(context.Background(), turn)
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if res.Skipped != nil || res.Outcome.Transitioned {
		t.Fatalf("result = %+v, want a tick", res)
	}
	if turn.Agent.CurrentState() != agent.StateResting || turn.Agent.TicksInState() != 1 {
		t.Errorf("agent = %s/%d, want resting/1", turn.Agent.CurrentState(), turn.Agent.TicksInState())
	}
	if turn.Population.Counter(population.CounterTicks) != 1 {
		t.Error("tick counter not incremented")
	}
	if len(log.types) != 1 || log.types[0] != event.TypeDecisionRecorded {
		t.Errorf("recorded %v, want one decision record", log.types)
	}
}

func TestPipeline_FailingActionSkipsAtApply(t *testing.T) {
	t.Parallel()

	transitions := DefaultTransitions()
	transitions[0].Action = func(*TurnContext) error { return errors.New("no room") }
	transitions[0].ActionName = "crowd"
	model, err := NewModel(transitions, DefaultRules(), TriggerTimeout)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	log := &recordingLog{}
	p := newTestPipeline(t, log, WithModel(model))
	turn := newTestTurn(t, agent.StateIdle, 1)

	res, err := p.RunTurn(context.Background(), turn)
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if res.Skipped == nil || res.Skipped.Stage != StageApply {
		t.Fatalf("Skipped = %+v, want apply stage", res.Skipped)
	}
	if turn.Agent.CurrentState() != agent.StateIdle || turn.Agent.TicksInState() != 0 {
		t.Error("failing action must leave the agent untouched")
	}
	if turn.Population.Counter(population.CounterTransitions) != 0 {
		t.Error("no transition should be counted")
	}
	if len(log.types) != 1 || log.types[0] != event.TypeTurnSkipped {
		t.Errorf("recorded %v, want one skip record", log.types)
	}
}

func TestPipeline_FetchWrapsSupplierErrors(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil, WithSupplier(feed.SupplierFunc(
		func(context.Context, string, feed.View) ([]feed.Item, error) {
			return nil, errors.New("timeout")
		})))

	_, err := p.fetch(context.Background(), newTestTurn(t, agent.StateIdle, 0))
	if !errors.Is(err, feed.ErrSupplierUnavailable) {
		t.Errorf("fetch() error = %v, want ErrSupplierUnavailable", err)
	}
}

func TestPipeline_FetchAppliesFeedLimit(t *testing.T) {
	t.Parallel()

	var seen feed.View
	p := newTestPipeline(t, nil, WithFeedLimit(2), WithSupplier(feed.SupplierFunc(
		func(_ context.Context, _ string, v feed.View) ([]feed.Item, error) {
			seen = v
			return nil, nil
		})))

	if _, err := p.fetch(context.Background(), newTestTurn(t, agent.StateIdle, 4)); err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if seen.Limit != 2 || seen.Round != 1 || len(seen.Posts) != 4 {
		t.Errorf("view = %+v, want limit 2, round 1 and 4 posts", seen)
	}
}

func TestPipeline_RecordFailureIsFatal(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	p := newTestPipeline(t, &recordingLog{err: boom})

	_, err := p.RunTurn(context.Background(), newTestTurn(t, agent.StateIdle, 0))
	if !errors.Is(err, boom) {
		t.Errorf("RunTurn() error = %v, want %v", err, boom)
	}
}

func TestPipeline_DecideSkipsOracleWhenUnambiguous(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	turn := newTestTurn(t, agent.StateIdle, 0)
	tc := &TurnContext{Agent: turn.Agent, Population: turn.Population, Round: 1}

	d := p.decide(context.Background(), turn, tc)
	if d.Resolution != nil || d.Targets != nil {
		t.Errorf("decision = %+v, oracle should not be consulted", d)
	}
	if !d.Fired || d.Transition.Target != agent.StateBrowsing {
		t.Errorf("decision = %+v, want idle -> browsing", d)
	}
}

func TestPipeline_OracleTimeoutFallsBack(t *testing.T) {
	t.Parallel()

	// Answers only once its context is done.
	slow := oracle.Func{ID: "slow", Fn: func(ctx context.Context, _ oracle.Request) (agent.State, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	p := newTestPipeline(t, nil, WithOracle(slow), WithOracleTimeout(20*time.Millisecond))
	turn := newTestTurn(t, agent.StateEvaluating, 3)
	tc := &TurnContext{Agent: turn.Agent, Population: turn.Population, Round: 1}

	done := make(chan Decision, 1)
	go func() { done <- p.decide(context.Background(), turn, tc) }()

	var d Decision
	select {
	case d = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("decide did not return after the oracle timeout")
	}

	if !d.Fallback() || d.Resolution.Oracle != "slow" {
		t.Fatalf("decision = %+v, want a fallback from the slow oracle", d)
	}
	if !errors.Is(d.Resolution.Reason, context.DeadlineExceeded) || !errors.Is(d.Resolution.Reason, oracle.ErrAmbiguityResolution) {
		t.Errorf("Reason = %v, want deadline exceeded", d.Resolution.Reason)
	}
	if !d.Fired || d.Transition.Target != agent.StateComposing {
		t.Errorf("decision = %+v, want first candidate composing", d)
	}
}

func TestPipeline_LikeActionUpdatesContent(t *testing.T) {
	t.Parallel()

	turn := newTestTurn(t, agent.StateEvaluating, 2)
	items := []feed.Item{{PostID: "post-2", Score: 0.9}, {PostID: "post-1", Score: 0.4}}
	tc := &TurnContext{Agent: turn.Agent, Population: turn.Population, Round: 1, Items: items}

	var engage statechart.Transition[*TurnContext]
	for _, tr := range DefaultTransitions() {
		if tr.Target == agent.StateEngaging && tr.Trigger == TriggerDecides {
			engage = tr
		}
	}
	if err := engage.Action(tc); err != nil {
		t.Fatalf("like action error = %v", err)
	}

	post, ok := turn.Population.Content().Get("post-2")
	if !ok || post.Likes != 1 || tc.LikedPost != "post-2" {
		t.Errorf("post-2 = %+v, liked %q, want one like on the top item", post, tc.LikedPost)
	}
	if turn.Population.Counter(population.CounterLikes) != 1 {
		t.Error("like counter not incremented")
	}

	tc.Items = nil
	if err := engage.Action(tc); !errors.Is(err, ErrNothingToLike) {
		t.Errorf("like on empty feed error = %v, want ErrNothingToLike", err)
	}
}
