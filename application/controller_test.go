package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/agentsim/application"
	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
	"github.com/felixgeelhaar/agentsim/domain/config"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	"github.com/felixgeelhaar/agentsim/domain/population"
	infracheckpoint "github.com/felixgeelhaar/agentsim/infrastructure/checkpoint"
	infrafeed "github.com/felixgeelhaar/agentsim/infrastructure/feed"
	"github.com/felixgeelhaar/agentsim/infrastructure/statemachine"
)

func TestNewController_Defaults(t *testing.T) {
	t.Parallel()

	c := newController(t)
	cfg := c.Config()

	if cfg.Model == nil || cfg.Oracle == nil || cfg.Supplier == nil || cfg.Metrics == nil {
		t.Fatalf("Config() = %+v, want defaults for every collaborator", cfg)
	}
	if cfg.Oracle.Name() != "rule" {
		t.Errorf("default oracle = %s, want rule", cfg.Oracle.Name())
	}
	if cfg.OracleTimeout != application.DefaultOracleTimeout {
		t.Errorf("default OracleTimeout = %s, want %s", cfg.OracleTimeout, application.DefaultOracleTimeout)
	}
	if cfg.CheckpointFrequency != 1 {
		t.Errorf("default CheckpointFrequency = %d, want 1", cfg.CheckpointFrequency)
	}
	if c.Phase() != statemachine.PhaseIdle {
		t.Errorf("Phase() before any run = %s, want idle", c.Phase())
	}
}

func TestNewController_InvalidConfig(t *testing.T) {
	t.Parallel()

	store, err := infracheckpoint.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	tests := []struct {
		name string
		opts []application.Option
	}{
		{"zero checkpoint frequency", []application.Option{
			application.WithCheckpointStore(store),
			application.WithCheckpointFrequency(0),
		}},
		{"negative feed limit", []application.Option{application.WithFeedLimit(-1)}},
		{"negative oracle timeout", []application.Option{application.WithOracleTimeout(-time.Second)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := application.NewController(tt.opts...)
			if !errors.Is(err, config.ErrValidationFailed) {
				t.Errorf("NewController() error = %v, want ErrValidationFailed", err)
			}
		})
	}
}

func TestController_RunSimulation_Lifecycle(t *testing.T) {
	t.Parallel()

	pop := newPopulation(t, 3, 3)
	log := newDecisionLog()
	c := newController(t, application.WithPublisher(log.publisher))

	if err := c.RunSimulation(context.Background(), pop, 4); err != nil {
		t.Fatalf("RunSimulation() error = %v", err)
	}

	if c.Phase() != statemachine.PhaseCompleted {
		t.Errorf("Phase() = %s, want completed", c.Phase())
	}
	if pop.RoundNumber != 4 {
		t.Errorf("RoundNumber = %d, want 4", pop.RoundNumber)
	}

	changes := c.PhaseChanges()
	if len(changes) != 2 || changes[0].To != statemachine.PhaseRunning || changes[1].To != statemachine.PhaseCompleted {
		t.Errorf("PhaseChanges() = %+v, want running then completed", changes)
	}

	if n := len(log.ofType(t, event.TypeDecisionRecorded)); n != 12 {
		t.Errorf("decision records = %d, want one per agent per round (12)", n)
	}
	if n := len(log.ofType(t, event.TypeRoundCompleted)); n != 4 {
		t.Errorf("round records = %d, want 4", n)
	}
	if n := len(log.ofType(t, event.TypeSimulationStarted)); n != 1 {
		t.Errorf("simulation.started records = %d, want 1", n)
	}
	if n := len(log.ofType(t, event.TypeSimulationCompleted)); n != 1 {
		t.Errorf("simulation.completed records = %d, want 1", n)
	}
}

func TestController_RunSimulation_InvalidInput(t *testing.T) {
	t.Parallel()

	c := newController(t)
	ctx := context.Background()

	if err := c.RunSimulation(ctx, nil, 3); !errors.Is(err, application.ErrNoPopulation) {
		t.Errorf("RunSimulation(nil) error = %v, want ErrNoPopulation", err)
	}
	if err := c.RunSimulation(ctx, newPopulation(t, 1, 0), 0); !errors.Is(err, application.ErrInvalidRounds) {
		t.Errorf("RunSimulation(0 rounds) error = %v, want ErrInvalidRounds", err)
	}
}

func TestController_RunSimulation_AlreadyComplete(t *testing.T) {
	t.Parallel()

	pop := newPopulation(t, 1, 0)
	if err := pop.CompleteRound(5); err != nil {
		t.Fatalf("CompleteRound() error = %v", err)
	}
	c := newController(t)

	if err := c.RunSimulation(context.Background(), pop, 5); err != nil {
		t.Fatalf("RunSimulation() error = %v", err)
	}
	if c.Phase() != statemachine.PhaseCompleted {
		t.Errorf("Phase() = %s, want completed", c.Phase())
	}
	rt, _ := pop.Agent("agent-1")
	if rt.CurrentState() != agent.InitialState {
		t.Error("no round should run when every round is complete")
	}
}

func TestController_CheckpointFrequency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := infracheckpoint.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	log := newDecisionLog()
	c := newController(t,
		application.WithCheckpointStore(store),
		application.WithCheckpointFrequency(2),
		application.WithPublisher(log.publisher),
	)

	if err := c.RunSimulation(ctx, newPopulation(t, 2, 3), 5); err != nil {
		t.Fatalf("RunSimulation() error = %v", err)
	}

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 2 || infos[0].RoundNumber != 2 || infos[1].RoundNumber != 4 {
		t.Errorf("List() = %+v, want checkpoints after rounds 2 and 4", infos)
	}
	if n := len(log.ofType(t, event.TypeCheckpointSaved)); n != 2 {
		t.Errorf("checkpoint.saved records = %d, want 2", n)
	}

	cp, err := store.ForRound(ctx, 4)
	if err != nil {
		t.Fatalf("ForRound(4) error = %v", err)
	}
	if cp.RoundNumber != 4 || cp.SimulationID != testSimulationID || len(cp.Agents) != 2 {
		t.Errorf("checkpoint = round %d sim %s agents %d", cp.RoundNumber, cp.SimulationID, len(cp.Agents))
	}
}

func TestController_SupplierFailureSkipsTurn(t *testing.T) {
	t.Parallel()

	down := feed.SupplierFunc(func(context.Context, string, feed.View) ([]feed.Item, error) {
		return nil, errors.New("connection refused")
	})
	pop := newPopulation(t, 2, 3)
	log := newDecisionLog()
	c := newController(t,
		application.WithSupplier(down),
		application.WithPublisher(log.publisher),
	)

	if err := c.RunSimulation(context.Background(), pop, 2); err != nil {
		t.Fatalf("RunSimulation() error = %v, supplier failures must not stop the run", err)
	}
	if c.Phase() != statemachine.PhaseCompleted {
		t.Errorf("Phase() = %s, want completed", c.Phase())
	}

	for _, rt := range pop.Agents() {
		if rt.CurrentState() != agent.InitialState || rt.TicksInState() != 0 || len(rt.History()) != 0 {
			t.Errorf("%s advanced despite skipped turns", rt.ID())
		}
	}
	if got := pop.Counter(population.CounterSkipped); got != 4 {
		t.Errorf("skip counter = %d, want 4", got)
	}

	skipped := log.ofType(t, event.TypeTurnSkipped)
	if len(skipped) != 4 {
		t.Fatalf("turn.skipped records = %d, want 4", len(skipped))
	}
	var p event.TurnSkippedPayload
	if err := skipped[0].UnmarshalPayload(&p); err != nil {
		t.Fatalf("UnmarshalPayload() error = %v", err)
	}
	if p.Stage != string(application.StageFetch) || p.AgentID != "agent-1" || p.State != agent.StateIdle {
		t.Errorf("skip payload = %+v", p)
	}
	if n := len(log.ofType(t, event.TypeDecisionRecorded)); n != 0 {
		t.Errorf("decision records = %d, want none for skipped turns", n)
	}
}

func TestController_RunRound_ReportsSkips(t *testing.T) {
	t.Parallel()

	// Every second fetch fails.
	pop := newPopulation(t, 4, 3)
	c := newController(t, application.WithSupplier(infrafeed.NewFlaky(infrafeed.NewRanker(), 2)))

	report, err := c.RunRound(context.Background(), pop, 1)
	if err != nil {
		t.Fatalf("RunRound() error = %v", err)
	}
	if report.Skipped != 2 || report.Transitions != 2 {
		t.Errorf("report = %+v, want 2 skipped and 2 transitions", report)
	}

	skip := report.Turns[1].Skipped
	if skip == nil {
		t.Fatal("second turn should be skipped")
	}
	if skip.Stage != application.StageFetch || skip.AgentID != "agent-2" {
		t.Errorf("skip = %+v", skip)
	}
	if !errors.Is(skip, application.ErrTurnSkipped) || !errors.Is(skip, feed.ErrSupplierUnavailable) {
		t.Errorf("skip error %v should wrap ErrTurnSkipped and ErrSupplierUnavailable", skip)
	}
}

func TestController_LaterAgentsSeeEarlierEffects(t *testing.T) {
	t.Parallel()

	pop := newPopulation(t, 2, 0)
	moveTo(t, pop, "agent-1", agent.StateEvaluating)
	second := moveTo(t, pop, "agent-2", agent.StateBrowsing)
	c := newController(t)

	if _, err := c.RunRound(context.Background(), pop, 1); err != nil {
		t.Fatalf("RunRound() error = %v", err)
	}

	// agent-1 publishes into an empty store; agent-2 finds the post.
	if got := pop.Counter(population.CounterPosts); got != 1 {
		t.Fatalf("posts = %d, want 1", got)
	}
	if second.CurrentState() != agent.StateEvaluating {
		t.Errorf("agent-2 state = %s, want evaluating", second.CurrentState())
	}
}

func TestController_CancellationFailsRun(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ranker := infrafeed.NewRanker()
	cancelling := feed.SupplierFunc(func(ctx context.Context, agentID string, view feed.View) ([]feed.Item, error) {
		if agentID == "agent-2" {
			cancel()
		}
		return ranker.Candidates(context.Background(), agentID, view)
	})

	pop := newPopulation(t, 3, 3)
	log := newDecisionLog()
	c := newController(t,
		application.WithSupplier(cancelling),
		application.WithPublisher(log.publisher),
	)

	err := c.RunSimulation(ctx, pop, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunSimulation() error = %v, want context.Canceled", err)
	}
	if c.Phase() != statemachine.PhaseFailed {
		t.Errorf("Phase() = %s, want failed", c.Phase())
	}
	if pop.RoundNumber != 0 {
		t.Errorf("RoundNumber = %d, the interrupted round must not complete", pop.RoundNumber)
	}
	if n := len(log.ofType(t, event.TypeSimulationFailed)); n != 1 {
		t.Errorf("simulation.failed records = %d, want 1", n)
	}
}

func TestController_Resume_NoStore(t *testing.T) {
	t.Parallel()

	c := newController(t)
	if _, err := c.ResumeFromCheckpoint(context.Background(), 3); !errors.Is(err, application.ErrNoCheckpointStore) {
		t.Errorf("ResumeFromCheckpoint() error = %v, want ErrNoCheckpointStore", err)
	}
}

func TestController_Resume_EmptyStore(t *testing.T) {
	t.Parallel()

	store, err := infracheckpoint.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	c := newController(t, application.WithCheckpointStore(store))

	if _, err := c.ResumeFromCheckpoint(context.Background(), 3); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("ResumeFromCheckpoint() error = %v, want ErrNotFound", err)
	}
}

func TestController_Resume_SkipsUnrestorableCheckpoint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := infracheckpoint.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	pop := newPopulation(t, 2, 0)
	if err := pop.CompleteRound(1); err != nil {
		t.Fatalf("CompleteRound() error = %v", err)
	}
	if _, err := store.Save(ctx, checkpoint.FromPopulation(pop, testTime)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := pop.CompleteRound(2); err != nil {
		t.Fatalf("CompleteRound() error = %v", err)
	}
	bad := checkpoint.FromPopulation(pop, testTime)
	bad.Agents[1].CurrentState = agent.State("dreaming")
	if _, err := store.Save(ctx, bad); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	c := newController(t, application.WithCheckpointStore(store))
	resumed, err := c.ResumeFromCheckpoint(ctx, 3)
	if err != nil {
		t.Fatalf("ResumeFromCheckpoint() error = %v, want fallback to round 1", err)
	}
	if resumed.RoundNumber != 3 {
		t.Errorf("RoundNumber = %d, want 3", resumed.RoundNumber)
	}
	// Rounds 2 and 3 ran from the round 1 checkpoint: idle, then browsing, then resting.
	rt, _ := resumed.Agent("agent-2")
	if hist := rt.History(); len(hist) != 2 || hist[0].RoundNumber != 2 {
		t.Errorf("agent-2 history = %+v, want transitions in rounds 2 and 3", hist)
	}
}

func TestController_Resume_VersionMismatchIsFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := infracheckpoint.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	pop := newPopulation(t, 1, 0)
	if err := pop.CompleteRound(1); err != nil {
		t.Fatalf("CompleteRound() error = %v", err)
	}
	cp := checkpoint.FromPopulation(pop, testTime)
	cp.SchemaVersion = checkpoint.SchemaVersion + 1
	if _, err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	c := newController(t, application.WithCheckpointStore(store))
	resumed, err := c.ResumeFromCheckpoint(ctx, 3)
	if !errors.Is(err, checkpoint.ErrVersionMismatch) {
		t.Fatalf("ResumeFromCheckpoint() error = %v, want ErrVersionMismatch", err)
	}
	if resumed != nil {
		t.Error("no population should be returned for an unreadable checkpoint")
	}
	if c.Phase() != statemachine.PhaseIdle {
		t.Errorf("Phase() = %s, no run should start", c.Phase())
	}
}

func TestController_TimeoutForcesTransition(t *testing.T) {
	t.Parallel()

	// Resting agents wait for the rested guard; a one-round timeout wins first.
	specs := []population.AgentSpec{{
		ID:       "agent-1",
		Settings: agent.Settings{TimeoutThreshold: 1, EngagementThreshold: 0.5, MaxHistoryDepth: 8},
	}}
	pop, err := population.New(testSimulationID, specs, 0)
	if err != nil {
		t.Fatalf("population.New() error = %v", err)
	}
	rt := moveTo(t, pop, "agent-1", agent.StateResting)
	rt.Tick()

	c := newController(t)
	if _, err := c.RunRound(context.Background(), pop, 1); err != nil {
		t.Fatalf("RunRound() error = %v", err)
	}

	hist := rt.History()
	last := hist[len(hist)-1]
	if last.Trigger != application.TriggerTimeout || rt.CurrentState() != agent.StateIdle {
		t.Errorf("last transition = %+v, want timeout to idle", last)
	}
}
