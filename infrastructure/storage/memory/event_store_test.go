package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/felixgeelhaar/agentsim/infrastructure/storage/memory"
)

var ts = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestEventStore_Append(t *testing.T) {
	t.Parallel()

	t.Run("assigns ids and per-simulation sequences", func(t *testing.T) {
		t.Parallel()

		store := memory.NewEventStore()
		ctx := context.Background()

		err := store.Append(ctx,
			event.Event{SimulationID: "sim-1", Type: event.TypeDecisionRecorded, Timestamp: ts},
			event.Event{SimulationID: "sim-2", Type: event.TypeDecisionRecorded, Timestamp: ts},
			event.Event{SimulationID: "sim-1", Type: event.TypeRoundCompleted, Timestamp: ts},
		)
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if store.Len() != 3 {
			t.Errorf("Len() = %d, want 3", store.Len())
		}

		events, _ := store.LoadEvents(ctx, "sim-1")
		if len(events) != 2 {
			t.Fatalf("LoadEvents() returned %d, want 2", len(events))
		}
		for i, e := range events {
			if e.Sequence != uint64(i+1) {
				t.Errorf("events[%d].Sequence = %d, want %d", i, e.Sequence, i+1)
			}
			if e.ID == "" {
				t.Errorf("events[%d] has no ID", i)
			}
		}
		if events[1].Type != event.TypeRoundCompleted {
			t.Errorf("order not preserved: %s", events[1].Type)
		}
	})

	t.Run("rejects the whole batch on an invalid event", func(t *testing.T) {
		t.Parallel()

		store := memory.NewEventStore()
		err := store.Append(context.Background(),
			event.Event{SimulationID: "sim-1", Type: event.TypeDecisionRecorded},
			event.Event{SimulationID: "sim-1"},
		)
		if !errors.Is(err, event.ErrInvalidEvent) {
			t.Fatalf("Append() error = %v, want ErrInvalidEvent", err)
		}
		if store.Len() != 0 {
			t.Errorf("Len() = %d, want 0", store.Len())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := memory.NewEventStore().Append(ctx, event.Event{SimulationID: "s", Type: "x"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Append() error = %v, want context.Canceled", err)
		}
	})
}

func TestEventStore_LoadEventsFrom(t *testing.T) {
	t.Parallel()

	store := memory.NewEventStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = store.Append(ctx, event.Event{SimulationID: "sim-1", Type: event.TypeDecisionRecorded})
	}

	events, err := store.LoadEventsFrom(ctx, "sim-1", 4)
	if err != nil {
		t.Fatalf("LoadEventsFrom() error = %v", err)
	}
	if len(events) != 2 || events[0].Sequence != 4 {
		t.Errorf("LoadEventsFrom(4) = %d events starting at %d", len(events), events[0].Sequence)
	}

	empty, _ := store.LoadEvents(ctx, "missing")
	if len(empty) != 0 {
		t.Error("unknown simulation should have no events")
	}
}

func TestEventStore_Query(t *testing.T) {
	t.Parallel()

	store := memory.NewEventStore()
	ctx := context.Background()
	_ = store.Append(ctx,
		event.Event{SimulationID: "sim-1", Type: event.TypeDecisionRecorded},
		event.Event{SimulationID: "sim-1", Type: event.TypeOracleFallback},
		event.Event{SimulationID: "sim-1", Type: event.TypeDecisionRecorded},
		event.Event{SimulationID: "sim-1", Type: event.TypeDecisionRecorded},
	)

	got, _ := store.Query(ctx, "sim-1", event.QueryOptions{
		Types:  []event.Type{event.TypeDecisionRecorded},
		Offset: 1,
		Limit:  1,
	})
	if len(got) != 1 || got[0].Sequence != 3 {
		t.Errorf("Query() = %+v, want the second decision", got)
	}

	n, _ := store.CountEvents(ctx, "sim-1")
	if n != 4 {
		t.Errorf("CountEvents() = %d, want 4", n)
	}

	_ = store.Append(ctx, event.Event{SimulationID: "sim-0", Type: event.TypeSimulationStarted})
	ids, _ := store.ListSimulations(ctx)
	if len(ids) != 2 || ids[0] != "sim-0" {
		t.Errorf("ListSimulations() = %v", ids)
	}
}
