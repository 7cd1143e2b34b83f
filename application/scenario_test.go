package application_test

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/felixgeelhaar/agentsim/application"
	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
	"github.com/felixgeelhaar/agentsim/domain/config"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	"github.com/felixgeelhaar/agentsim/domain/population"
	infracheckpoint "github.com/felixgeelhaar/agentsim/infrastructure/checkpoint"
	infraconfig "github.com/felixgeelhaar/agentsim/infrastructure/config"
	infrafeed "github.com/felixgeelhaar/agentsim/infrastructure/feed"
	infraoracle "github.com/felixgeelhaar/agentsim/infrastructure/oracle"
)

func TestScenario_IdleStartsBrowsing(t *testing.T) {
	t.Parallel()

	pop := newPopulation(t, 1, 3)
	c := newController(t)

	report, err := c.RunRound(context.Background(), pop, 1)
	if err != nil {
		t.Fatalf("RunRound() error = %v", err)
	}

	rt, _ := pop.Agent("agent-1")
	if rt.CurrentState() != agent.StateBrowsing {
		t.Errorf("state = %s, want browsing", rt.CurrentState())
	}
	hist := rt.History()
	if len(hist) != 1 || hist[0].Trigger != application.TriggerStartBrowsing || hist[0].RoundNumber != 1 {
		t.Errorf("History() = %+v, want one startBrowsing record in round 1", hist)
	}
	if report.Transitions != 1 || report.Skipped != 0 {
		t.Errorf("report = %+v, want 1 transition", report)
	}
}

func TestScenario_EmptyFeedRests(t *testing.T) {
	t.Parallel()

	pop := newPopulation(t, 1, 0)
	rt := moveTo(t, pop, "agent-1", agent.StateBrowsing)
	log := newDecisionLog()
	c := newController(t, application.WithPublisher(log.publisher))

	if _, err := c.RunRound(context.Background(), pop, 1); err != nil {
		t.Fatalf("RunRound() error = %v", err)
	}

	if rt.CurrentState() != agent.StateResting {
		t.Errorf("state = %s, want resting", rt.CurrentState())
	}

	decisions := application.NewTimelineFromEvents(log.events(t)).Decisions(1)
	if len(decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(decisions))
	}
	d := decisions[0]
	if d.Trigger != application.TriggerFeedEmpty || d.Candidates != 0 || !d.Transitioned {
		t.Errorf("decision = %+v, want feedEmpty with no candidates", d)
	}
}

func TestScenario_FailingOracleFallsBackToFirstCandidate(t *testing.T) {
	t.Parallel()

	pop := newPopulation(t, 1, 3)
	rt := moveTo(t, pop, "agent-1", agent.StateEvaluating)
	log := newDecisionLog()
	c := newController(t,
		application.WithOracle(infraoracle.NewFailingOracle(errors.New("backend down"))),
		application.WithPublisher(log.publisher),
	)

	report, err := c.RunRound(context.Background(), pop, 1)
	if err != nil {
		t.Fatalf("RunRound() error = %v", err)
	}

	if rt.CurrentState() != agent.StateComposing {
		t.Errorf("state = %s, want composing", rt.CurrentState())
	}
	if report.Fallbacks != 1 {
		t.Errorf("report.Fallbacks = %d, want 1", report.Fallbacks)
	}
	if got := pop.Counter(population.CounterFallbacks); got != 1 {
		t.Errorf("fallback counter = %d, want 1", got)
	}
	if got := pop.Counter(population.CounterPosts); got != 1 {
		t.Errorf("post counter = %d, want 1", got)
	}

	fallbacks := application.NewTimelineFromEvents(log.events(t)).Fallbacks()
	if len(fallbacks) != 1 {
		t.Fatalf("fallback events = %d, want 1", len(fallbacks))
	}
	fb := fallbacks[0]
	wantCandidates := []agent.State{agent.StateComposing, agent.StateEngaging, agent.StateBrowsing}
	if !reflect.DeepEqual(fb.Candidates, wantCandidates) {
		t.Errorf("fallback candidates = %v, want %v", fb.Candidates, wantCandidates)
	}
	if fb.Chosen != agent.StateComposing || fb.Oracle != "stub" || fb.Reason == "" {
		t.Errorf("fallback = %+v", fb)
	}

	decisions := application.NewTimelineFromEvents(log.events(t)).Decisions(1)
	if len(decisions) != 1 || !decisions[0].Fallback || decisions[0].ChosenAction != application.ActionPublishPost {
		t.Errorf("decisions = %+v, want one fallback publishing decision", decisions)
	}
}

func TestScenario_DefaultConfigPublishesAndLikes(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	build, err := infraconfig.NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	pop, err := population.New(build.SimulationID, build.Agents, build.SeedItems)
	if err != nil {
		t.Fatalf("population.New() error = %v", err)
	}
	c := newController(t, application.WithFeedLimit(build.FeedLimit))

	if err := c.RunSimulation(context.Background(), pop, build.MaxRounds); err != nil {
		t.Fatalf("RunSimulation() error = %v", err)
	}

	// Seed posts age below the engagement threshold, so the first agent to
	// evaluate composes and the others react to the fresh post.
	if got := pop.Counter(population.CounterPosts); got == 0 {
		t.Errorf("post counter = 0 after %d rounds, counters %v", build.MaxRounds, pop.Counters())
	}
	if got := pop.Counter(population.CounterLikes); got == 0 {
		t.Errorf("like counter = 0 after %d rounds, counters %v", build.MaxRounds, pop.Counters())
	}
	if pop.Content().Len() <= build.SeedItems {
		t.Errorf("content store holds %d posts, want more than the %d seeds", pop.Content().Len(), build.SeedItems)
	}

	visited := make(map[agent.State]bool)
	for _, rt := range pop.Agents() {
		for _, rec := range rt.History() {
			visited[rec.ToState] = true
		}
	}
	for _, s := range []agent.State{agent.StateComposing, agent.StateEngaging, agent.StateResting} {
		if !visited[s] {
			t.Errorf("no agent reached %s, visited %v", s, visited)
		}
	}
}

func TestScenario_ResumeMatchesUninterruptedRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		rounds       int
		interruptAt  int
		historyDepth int
		failEvery    int
	}{
		{"early interruption", 2, 1, agent.DefaultMaxHistoryDepth, 0},
		{"actions and history eviction", 12, 5, 2, 0},
		{"injected supplier failures", 12, 5, 2, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			const agents = 3
			settings := agent.DefaultSettings()
			settings.MaxHistoryDepth = tt.historyDepth

			options := func(extra ...application.Option) []application.Option {
				supplier := feed.Supplier(infrafeed.NewRanker())
				if tt.failEvery > 0 {
					supplier = infrafeed.NewFlaky(supplier, tt.failEvery)
				}
				return append([]application.Option{application.WithSupplier(supplier)}, extra...)
			}

			// Uninterrupted.
			fullStore, err := infracheckpoint.NewFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileStore() error = %v", err)
			}
			fullLog := newDecisionLog()
			full := newPopulationWith(t, agents, 3, settings)
			c := newController(t, options(
				application.WithCheckpointStore(fullStore),
				application.WithPublisher(fullLog.publisher),
			)...)
			if err := c.RunSimulation(ctx, full, tt.rounds); err != nil {
				t.Fatalf("RunSimulation() error = %v", err)
			}

			// Interrupted, then resumed by a fresh controller and supplier.
			store, err := infracheckpoint.NewFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileStore() error = %v", err)
			}
			first := newController(t, options(application.WithCheckpointStore(store))...)
			if err := first.RunSimulation(ctx, newPopulationWith(t, agents, 3, settings), tt.interruptAt); err != nil {
				t.Fatalf("RunSimulation(%d) error = %v", tt.interruptAt, err)
			}

			resumedLog := newDecisionLog()
			second := newController(t, options(
				application.WithCheckpointStore(store),
				application.WithPublisher(resumedLog.publisher),
			)...)
			resumed, err := second.ResumeFromCheckpoint(ctx, tt.rounds)
			if err != nil {
				t.Fatalf("ResumeFromCheckpoint() error = %v", err)
			}

			want := checkpoint.FromPopulation(full, testTime)
			got := checkpoint.FromPopulation(resumed, testTime)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("resumed state differs:\n got %+v\nwant %+v", got, want)
			}

			fullTimeline := application.NewTimelineFromEvents(fullLog.events(t))
			resumedTimeline := application.NewTimelineFromEvents(resumedLog.events(t))
			for round := tt.interruptAt + 1; round <= tt.rounds; round++ {
				wantRound := fullTimeline.Round(round)
				gotRound := resumedTimeline.Round(round)
				if len(gotRound) != len(wantRound) || len(gotRound) == 0 {
					t.Fatalf("round %d records: got %d, want %d", round, len(gotRound), len(wantRound))
				}
				for i := range wantRound {
					if gotRound[i].Type != wantRound[i].Type || !bytes.Equal(gotRound[i].Payload, wantRound[i].Payload) {
						t.Errorf("round %d record %d: got %s %s, want %s %s",
							round, i, gotRound[i].Type, gotRound[i].Payload, wantRound[i].Type, wantRound[i].Payload)
					}
				}
			}

			if len(resumedLog.ofType(t, event.TypeSimulationResumed)) != 1 {
				t.Error("resumed run should write simulation.resumed")
			}

			if tt.rounds < 12 {
				return
			}
			// The long runs must carry actions, evictions and skips across the boundary.
			if full.Counter(population.CounterPosts) == 0 || full.Counter(population.CounterLikes) == 0 {
				t.Errorf("counters %v, want posts and likes", full.Counters())
			}
			if tt.failEvery > 0 && full.Counter(population.CounterSkipped) == 0 {
				t.Errorf("counters %v, want skipped turns", full.Counters())
			}
			for _, rt := range resumed.Agents() {
				if n := len(rt.History()); n != tt.historyDepth {
					t.Errorf("%s history = %d records, want the %d most recent", rt.ID(), n, tt.historyDepth)
				}
			}
		})
	}
}

func TestScenario_PanickingGuardFallsThrough(t *testing.T) {
	t.Parallel()

	transitions := application.DefaultTransitions()
	for i, tr := range transitions {
		if tr.Trigger == application.TriggerDecides && tr.Target == agent.StateEngaging {
			transitions[i].Guard = func(*application.TurnContext) bool { panic("guard exploded") }
		}
	}
	model, err := application.NewModel(transitions, application.DefaultRules(), application.TriggerTimeout)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	pop := newPopulation(t, 1, 3)
	rt := moveTo(t, pop, "agent-1", agent.StateEvaluating)
	c := newController(t,
		application.WithModel(model),
		application.WithOracle(infraoracle.NewStubOracle(agent.StateEngaging)),
	)

	report, err := c.RunRound(context.Background(), pop, 1)
	if err != nil {
		t.Fatalf("RunRound() error = %v", err)
	}

	// The preferred target is rejected; composing is next in declaration order.
	if rt.CurrentState() != agent.StateComposing {
		t.Errorf("state = %s, want composing", rt.CurrentState())
	}
	if report.Skipped != 0 || report.Fallbacks != 0 {
		t.Errorf("report = %+v, want a clean turn", report)
	}
	if pop.Counter(population.CounterLikes) != 0 {
		t.Error("rejected engaging transition must not run its action")
	}
}
