package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
	"github.com/felixgeelhaar/agentsim/domain/population"
)

var testNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func testCheckpoint(t *testing.T, round int) *checkpoint.Checkpoint {
	t.Helper()

	pop, err := population.New("sim-1", []population.AgentSpec{
		{ID: "agent-1", Settings: agent.DefaultSettings()},
		{ID: "agent-2", Settings: agent.DefaultSettings()},
	}, 2)
	if err != nil {
		t.Fatalf("population.New() error = %v", err)
	}
	a, _ := pop.Agent("agent-1")
	_ = a.TransitionTo(agent.StateBrowsing, "startBrowsing", 1, testNow)
	for r := 1; r <= round; r++ {
		if err := pop.CompleteRound(r); err != nil {
			t.Fatalf("CompleteRound() error = %v", err)
		}
	}
	pop.Incr(population.CounterTransitions, 1)
	return checkpoint.FromPopulation(pop, testNow)
}

type storeFactory func(t *testing.T) checkpoint.Store

func stores() map[string]storeFactory {
	return map[string]storeFactory{
		"file": func(t *testing.T) checkpoint.Store {
			s, err := NewFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileStore() error = %v", err)
			}
			return s
		},
		"badger": func(t *testing.T) checkpoint.Store {
			s, err := NewBadgerStore(BadgerConfig{})
			if err != nil {
				t.Fatalf("NewBadgerStore() error = %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := factory(t)
			c := testCheckpoint(t, 5)

			ref, err := s.Save(ctx, c)
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := s.Load(ctx, ref)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded.RoundNumber != 5 || loaded.SimulationID != "sim-1" {
				t.Errorf("loaded = round %d sim %s", loaded.RoundNumber, loaded.SimulationID)
			}
			if loaded.Checksum != c.Checksum {
				t.Error("checksum changed across save and load")
			}

			pop, err := loaded.Population()
			if err != nil {
				t.Fatalf("Population() error = %v", err)
			}
			a, _ := pop.Agent("agent-1")
			if a.CurrentState() != agent.StateBrowsing || len(a.History()) != 1 {
				t.Errorf("restored agent = %s with %d records", a.CurrentState(), len(a.History()))
			}
			if pop.Counter(population.CounterTransitions) != 1 {
				t.Error("counters not restored")
			}

			byRound, err := s.ForRound(ctx, 5)
			if err != nil || byRound.RoundNumber != 5 {
				t.Errorf("ForRound(5) = %v, %v", byRound, err)
			}
		})
	}
}

func TestStore_ListAndLatest(t *testing.T) {
	t.Parallel()

	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := factory(t)
			for _, r := range []int{10, 5, 15} {
				if _, err := s.Save(ctx, testCheckpoint(t, r)); err != nil {
					t.Fatalf("Save(%d) error = %v", r, err)
				}
			}

			infos, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(infos) != 3 || infos[0].RoundNumber != 5 || infos[2].RoundNumber != 15 {
				t.Errorf("List() = %+v, want rounds 5, 10, 15", infos)
			}

			latest, err := s.Latest(ctx)
			if err != nil {
				t.Fatalf("Latest() error = %v", err)
			}
			if latest.RoundNumber != 15 {
				t.Errorf("Latest() round = %d, want 15", latest.RoundNumber)
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	t.Parallel()

	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := factory(t)
			if _, err := s.Latest(context.Background()); !errors.Is(err, checkpoint.ErrNotFound) {
				t.Errorf("Latest() error = %v, want ErrNotFound", err)
			}
			if _, err := s.ForRound(context.Background(), 3); !errors.Is(err, checkpoint.ErrNotFound) {
				t.Errorf("ForRound() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestFileStore_LatestSkipsCorrupt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if _, err := s.Save(ctx, testCheckpoint(t, 5)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	ref, err := s.Save(ctx, testCheckpoint(t, 10))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Truncate the newest checkpoint mid-document.
	data, _ := os.ReadFile(ref)
	if err := os.WriteFile(ref, data[:len(data)/2], 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(ctx, ref); !errors.Is(err, checkpoint.ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
	latest, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.RoundNumber != 5 {
		t.Errorf("Latest() round = %d, want 5", latest.RoundNumber)
	}
}

func TestStore_LatestSkipsUnrestorable(t *testing.T) {
	t.Parallel()

	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := factory(t)
			if _, err := s.Save(ctx, testCheckpoint(t, 5)); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			// Sealed and decodable, but the agent holds an undeclared state.
			bad := testCheckpoint(t, 10)
			bad.Agents[0].CurrentState = agent.State("dreaming")
			ref, err := s.Save(ctx, bad)
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			loaded, err := s.Load(ctx, ref)
			if err != nil {
				t.Fatalf("Load() error = %v, the document itself is intact", err)
			}
			if _, err := loaded.Population(); !errors.Is(err, checkpoint.ErrCorrupt) {
				t.Fatalf("Population() error = %v, want ErrCorrupt", err)
			}

			latest, err := s.Latest(ctx)
			if err != nil {
				t.Fatalf("Latest() error = %v", err)
			}
			if latest.RoundNumber != 5 {
				t.Errorf("Latest() round = %d, want 5", latest.RoundNumber)
			}
		})
	}
}

func TestStore_LatestAllUnrestorable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	bad := testCheckpoint(t, 3)
	bad.Agents[1].TicksInState = -1
	if _, err := s.Save(ctx, bad); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := s.Latest(ctx); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("Latest() error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_LatestVersionMismatchIsFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())
	if _, err := s.Save(ctx, testCheckpoint(t, 5)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	ref, _ := s.Save(ctx, testCheckpoint(t, 10))

	data, _ := os.ReadFile(ref)
	bumped := strings.Replace(string(data), `"schemaVersion": 1`, `"schemaVersion": 2`, 1)
	if bumped == string(data) {
		t.Fatal("schemaVersion field not found in document")
	}
	_ = os.WriteFile(ref, []byte(bumped), 0o600)

	if _, err := s.Latest(ctx); !errors.Is(err, checkpoint.ErrVersionMismatch) {
		t.Errorf("Latest() error = %v, want ErrVersionMismatch", err)
	}
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	if _, err := s.Save(context.Background(), testCheckpoint(t, 1)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != FileName(1) {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory holds %v, want only %s", names, FileName(1))
	}
}

func TestFileStore_ListIgnoresForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600)
	_ = os.WriteFile(filepath.Join(dir, "checkpoint-abc.json"), []byte("x"), 0o600)

	infos, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("List() = %+v, want none", infos)
	}
}

func TestFileStore_SaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	s, _ := NewFileStore(t.TempDir())
	c := testCheckpoint(t, 1)
	c.RoundNumber = -1
	if _, err := s.Save(context.Background(), c); !errors.Is(err, checkpoint.ErrInvalidCheckpoint) {
		t.Errorf("Save() error = %v, want ErrInvalidCheckpoint", err)
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	if got := FileName(42); got != "checkpoint-00000042.json" {
		t.Errorf("FileName(42) = %s", got)
	}
	if r, ok := parseFileName(FileName(42)); !ok || r != 42 {
		t.Errorf("parseFileName() = %d, %v", r, ok)
	}
}
