package application_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/felixgeelhaar/agentsim/application"
	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/domain/population"
	infraevent "github.com/felixgeelhaar/agentsim/infrastructure/event"
	"github.com/felixgeelhaar/agentsim/infrastructure/storage/memory"
)

const testSimulationID = "sim-test"

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testTime }

func newPopulation(t *testing.T, agents, seedItems int) *population.State {
	t.Helper()
	return newPopulationWith(t, agents, seedItems, agent.DefaultSettings())
}

func newPopulationWith(t *testing.T, agents, seedItems int, settings agent.Settings) *population.State {
	t.Helper()

	specs := make([]population.AgentSpec, agents)
	for i := range specs {
		specs[i] = population.AgentSpec{
			ID:       fmt.Sprintf("agent-%d", i+1),
			Settings: settings,
		}
	}
	pop, err := population.New(testSimulationID, specs, seedItems)
	if err != nil {
		t.Fatalf("population.New() error = %v", err)
	}
	return pop
}

// moveTo puts an agent into state without going through the pipeline.
func moveTo(t *testing.T, pop *population.State, id string, state agent.State) *agent.Runtime {
	t.Helper()

	rt, err := pop.Agent(id)
	if err != nil {
		t.Fatalf("Agent(%s) error = %v", id, err)
	}
	if err := rt.TransitionTo(state, "setup", 0, testTime); err != nil {
		t.Fatalf("TransitionTo(%s) error = %v", state, err)
	}
	return rt
}

type decisionLog struct {
	store     *memory.EventStore
	publisher *infraevent.Publisher
}

func newDecisionLog() *decisionLog {
	store := memory.NewEventStore()
	return &decisionLog{store: store, publisher: infraevent.NewPublisher(store)}
}

func (l *decisionLog) events(t *testing.T) []event.Event {
	t.Helper()

	events, err := l.store.LoadEvents(context.Background(), testSimulationID)
	if err != nil {
		t.Fatalf("LoadEvents() error = %v", err)
	}
	return events
}

func (l *decisionLog) ofType(t *testing.T, typ event.Type) []event.Event {
	t.Helper()
	return application.NewTimelineFromEvents(l.events(t)).EventsByType(typ)
}

func newController(t *testing.T, opts ...application.Option) *application.Controller {
	t.Helper()

	opts = append([]application.Option{application.WithClock(fixedClock)}, opts...)
	c, err := application.NewController(opts...)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c
}
