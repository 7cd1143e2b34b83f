// Package population holds the shared simulation state: agents in turn
// order, aggregate counters and the content store.
package population

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/agentsim/domain/agent"
)

// Aggregate counter names.
const (
	CounterTransitions = "transition.total"
	CounterFallbacks   = "fallback.total"
	CounterSkipped     = "turn.skipped"
	CounterTicks       = "tick.total"
	CounterPosts       = "post.total"
	CounterLikes       = "like.total"

	// CounterActionPrefix prefixes per-action counters, e.g. "action.engage".
	CounterActionPrefix = "action."
)

// AgentSpec declares one agent of a new population.
type AgentSpec struct {
	ID       string
	Settings agent.Settings
}

// State is the single mutable simulation value. It has one logical writer:
// the pipeline of the agent whose turn it is.
type State struct {
	// SimulationID identifies the run across checkpoints and decision logs.
	SimulationID string

	// RoundNumber is the last completed round. Zero means no round has run.
	RoundNumber int

	agents   []*agent.Runtime
	index    map[string]int
	counters map[string]int64
	content  *Content
}

// New creates a fresh population with every agent in the initial state.
func New(simulationID string, specs []AgentSpec, seedItems int) (*State, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyPopulation
	}
	agents := make([]*agent.Runtime, 0, len(specs))
	for _, s := range specs {
		rt, err := agent.NewRuntime(s.ID, s.Settings)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", s.ID, err)
		}
		agents = append(agents, rt)
	}
	content := NewContent()
	for i := 0; i < seedItems; i++ {
		content.Seed()
	}
	return Restore(simulationID, 0, agents, nil, content)
}

// Restore assembles a population from previously built parts.
func Restore(simulationID string, round int, agents []*agent.Runtime, counters map[string]int64, content *Content) (*State, error) {
	if len(agents) == 0 {
		return nil, ErrEmptyPopulation
	}
	if round < 0 {
		return nil, fmt.Errorf("%w: %d", ErrRoundRegression, round)
	}
	p := &State{
		SimulationID: simulationID,
		RoundNumber:  round,
		agents:       agents,
		index:        make(map[string]int, len(agents)),
		counters:     make(map[string]int64, len(counters)),
		content:      content,
	}
	for i, a := range agents {
		if _, dup := p.index[a.ID()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, a.ID())
		}
		p.index[a.ID()] = i
	}
	for k, v := range counters {
		p.counters[k] = v
	}
	if p.content == nil {
		p.content = NewContent()
	}
	return p, nil
}

// Agents returns the agents in turn order.
func (p *State) Agents() []*agent.Runtime {
	return append([]*agent.Runtime(nil), p.agents...)
}

// Len returns the population size.
func (p *State) Len() int {
	return len(p.agents)
}

// Agent looks up an agent by ID.
func (p *State) Agent(id string) (*agent.Runtime, error) {
	i, ok := p.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return p.agents[i], nil
}

// Content returns the shared content store.
func (p *State) Content() *Content {
	return p.content
}

// Incr adds delta to the named counter.
func (p *State) Incr(name string, delta int64) {
	p.counters[name] += delta
}

// Counter returns the value of a counter.
func (p *State) Counter(name string) int64 {
	return p.counters[name]
}

// Counters returns a copy of all counters.
func (p *State) Counters() map[string]int64 {
	out := make(map[string]int64, len(p.counters))
	for k, v := range p.counters {
		out[k] = v
	}
	return out
}

// CounterNames returns the counter names in sorted order.
func (p *State) CounterNames() []string {
	names := make([]string, 0, len(p.counters))
	for k := range p.counters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// CompleteRound records round as the last completed round.
func (p *State) CompleteRound(round int) error {
	if round <= p.RoundNumber {
		return fmt.Errorf("%w: %d after %d", ErrRoundRegression, round, p.RoundNumber)
	}
	p.RoundNumber = round
	return nil
}

// StateDistribution counts agents per state.
func (p *State) StateDistribution() map[agent.State]int {
	out := make(map[agent.State]int)
	for _, a := range p.agents {
		out[a.CurrentState()]++
	}
	return out
}
