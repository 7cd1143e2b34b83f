package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	domain "github.com/felixgeelhaar/agentsim/domain/oracle"
)

func items(scores ...float64) []feed.Item {
	out := make([]feed.Item, len(scores))
	for i, s := range scores {
		out[i] = feed.Item{PostID: "post-x", AuthorID: "seed", Score: s}
	}
	return out
}

func TestRuleOracle_Decide(t *testing.T) {
	t.Parallel()

	all := []agent.State{agent.StateEngaging, agent.StateComposing, agent.StateBrowsing}

	tests := []struct {
		name       string
		candidates []agent.State
		items      []feed.Item
		threshold  float64
		want       agent.State
	}{
		{"engages above threshold", all, items(0.9, 0.2, 0.1), 0.5, agent.StateEngaging},
		{"engages at threshold", all, items(0.5, 0.4, 0.3), 0.5, agent.StateEngaging},
		{"composes on thin feed", all, items(0.1), 0.5, agent.StateComposing},
		{"composes when nothing reaches threshold", all, items(0.3, 0.2, 0.1), 0.5, agent.StateComposing},
		{"composes on empty feed", all, nil, 0.5, agent.StateComposing},
		{"browses when composing not offered", []agent.State{agent.StateEngaging, agent.StateBrowsing}, items(0.3, 0.2), 0.5, agent.StateBrowsing},
		{"first candidate when nothing matches", []agent.State{agent.StateResting, agent.StateIdle}, nil, 0.5, agent.StateResting},
		{"skips engaging when not offered", []agent.State{agent.StateComposing, agent.StateBrowsing}, items(0.9), 0.5, agent.StateComposing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewRuleOracle().Decide(context.Background(), domain.Request{
				Candidates:          tt.candidates,
				Items:               tt.items,
				EngagementThreshold: tt.threshold,
			})
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decide() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRuleOracle_NoCandidates(t *testing.T) {
	t.Parallel()

	_, err := NewRuleOracle().Decide(context.Background(), domain.Request{})
	if !errors.Is(err, domain.ErrNoCandidates) {
		t.Errorf("Decide() error = %v, want ErrNoCandidates", err)
	}
}

func TestStubOracle(t *testing.T) {
	t.Parallel()

	req := domain.Request{AgentID: "agent-1", Candidates: []agent.State{agent.StateComposing}}

	t.Run("fixed answer", func(t *testing.T) {
		t.Parallel()

		o := NewStubOracle(agent.StateEngaging)
		got, err := o.Decide(context.Background(), req)
		if err != nil || got != agent.StateEngaging {
			t.Errorf("Decide() = %s, %v; want engaging, nil", got, err)
		}
		if n := len(o.Requests()); n != 1 {
			t.Errorf("Requests() = %d, want 1", n)
		}
	})

	t.Run("failing oracle falls back to first candidate", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("backend down")
		res := domain.Resolve(context.Background(), NewFailingOracle(boom), req)
		if !res.Fallback || res.Target != agent.StateComposing {
			t.Errorf("Resolve() = %+v, want fallback to composing", res)
		}
		if !errors.Is(res.Reason, boom) || !errors.Is(res.Reason, domain.ErrAmbiguityResolution) {
			t.Errorf("Reason = %v, want wrapping backend error", res.Reason)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewStubOracle(agent.StateIdle).Decide(ctx, req)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Decide() error = %v, want context.Canceled", err)
		}
	})
}
