package statechart

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/agentsim/domain/agent"
)

// GuardPanicHandler is notified when a guard panics. The panic is
// recovered and the candidate is treated as rejected.
type GuardPanicHandler func(trigger string, source, target agent.State, recovered any)

// Engine evaluates a validated transition table.
// It holds no per-agent state and is safe for concurrent use.
type Engine[C any] struct {
	states      []agent.State
	declared    map[agent.State]bool
	transitions []Transition[C]
	index       map[lookup][]int
	onPanic     GuardPanicHandler
}

// EngineOption configures an engine.
type EngineOption[C any] func(*Engine[C])

// WithGuardPanicHandler registers a hook invoked whenever a guard panics.
func WithGuardPanicHandler[C any](h GuardPanicHandler) EngineOption[C] {
	return func(e *Engine[C]) {
		e.onPanic = h
	}
}

// NewEngine validates the table and builds an engine.
// A malformed table is reported here and never at evaluation time.
func NewEngine[C any](states []agent.State, transitions []Transition[C], opts ...EngineOption[C]) (*Engine[C], error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTable, ErrNoStates)
	}

	e := &Engine[C]{
		states:      append([]agent.State(nil), states...),
		declared:    make(map[agent.State]bool, len(states)),
		transitions: append([]Transition[C](nil), transitions...),
		index:       make(map[lookup][]int),
	}
	for _, s := range states {
		if !s.IsValid() {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidTable, ErrUnknownState, s)
		}
		e.declared[s] = true
	}

	seen := make(map[key]bool, len(transitions))
	for i, t := range e.transitions {
		if t.Trigger == "" {
			return nil, fmt.Errorf("%w: transition %d: %w", ErrInvalidTable, i, ErrEmptyTrigger)
		}
		if !e.declared[t.Source] {
			return nil, fmt.Errorf("%w: transition %d source: %w: %q", ErrInvalidTable, i, ErrUnknownState, t.Source)
		}
		if !e.declared[t.Target] {
			return nil, fmt.Errorf("%w: transition %d target: %w: %q", ErrInvalidTable, i, ErrUnknownState, t.Target)
		}
		k := key{trigger: t.Trigger, source: t.Source, target: t.Target}
		if seen[k] {
			return nil, fmt.Errorf("%w: %w: %s --%s--> %s", ErrInvalidTable, ErrDuplicateTransition, t.Source, t.Trigger, t.Target)
		}
		seen[k] = true

		l := lookup{trigger: t.Trigger, source: t.Source}
		e.index[l] = append(e.index[l], i)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// States returns the declared states in declaration order.
func (e *Engine[C]) States() []agent.State {
	return append([]agent.State(nil), e.states...)
}

// Transitions returns a copy of the table in declaration order.
func (e *Engine[C]) Transitions() []Transition[C] {
	return append([]Transition[C](nil), e.transitions...)
}

// Fire returns the first candidate for (trigger, current) whose guard passes.
// Candidates are tried in declaration order. A panicking guard counts as false.
// The second result is false when nothing fires; that is not an error.
func (e *Engine[C]) Fire(trigger string, current agent.State, ctx C) (Transition[C], bool) {
	for _, i := range e.index[lookup{trigger: trigger, source: current}] {
		t := e.transitions[i]
		if e.passes(t, ctx) {
			return t, true
		}
	}
	return Transition[C]{}, false
}

// FirePreferring behaves like Fire but evaluates the candidate targeting
// preferred first. Remaining candidates follow in declaration order, so a
// rejected preference still yields a valid transition when one exists.
func (e *Engine[C]) FirePreferring(trigger string, current, preferred agent.State, ctx C) (Transition[C], bool) {
	idx := e.index[lookup{trigger: trigger, source: current}]
	for _, i := range idx {
		t := e.transitions[i]
		if t.Target != preferred {
			continue
		}
		if e.passes(t, ctx) {
			return t, true
		}
		break
	}
	for _, i := range idx {
		t := e.transitions[i]
		if t.Target == preferred {
			continue
		}
		if e.passes(t, ctx) {
			return t, true
		}
	}
	return Transition[C]{}, false
}

// ValidTriggers returns the sorted set of triggers leaving state, ignoring guards.
func (e *Engine[C]) ValidTriggers(state agent.State) []string {
	set := make(map[string]bool)
	for _, t := range e.transitions {
		if t.Source == state {
			set[t.Trigger] = true
		}
	}
	out := make([]string, 0, len(set))
	for trig := range set {
		out = append(out, trig)
	}
	sort.Strings(out)
	return out
}

// ValidTargets returns the targets reachable from state via trigger,
// ignoring guards, in declaration order.
func (e *Engine[C]) ValidTargets(state agent.State, trigger string) []agent.State {
	idx := e.index[lookup{trigger: trigger, source: state}]
	out := make([]agent.State, 0, len(idx))
	for _, i := range idx {
		out = append(out, e.transitions[i].Target)
	}
	return out
}

// IsAmbiguous reports whether more than one target is declared for (state, trigger).
func (e *Engine[C]) IsAmbiguous(state agent.State, trigger string) bool {
	return len(e.index[lookup{trigger: trigger, source: state}]) > 1
}

func (e *Engine[C]) passes(t Transition[C], ctx C) (ok bool) {
	if t.Guard == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if e.onPanic != nil {
				e.onPanic(t.Trigger, t.Source, t.Target, r)
			}
		}
	}()
	return t.Guard(ctx)
}
