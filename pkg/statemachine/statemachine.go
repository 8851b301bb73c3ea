package statemachine

import (
	"context"
	"fmt"
)

// Guard decides at fire time whether a transition may be taken.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Action runs a side effect of a transition. An error aborts it.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E, data any) error

// Transition is one row of the table.
type Transition[S, E comparable] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E]
	Actions []Action[S, E]
}

// Machine is an immutable transition table, safe for concurrent use.
type Machine[S, E comparable] struct {
	transitions map[S]map[E][]Transition[S, E]
}

func (m *Machine[S, E]) add(t Transition[S, E]) {
	byEvent, ok := m.transitions[t.From]
	if !ok {
		byEvent = make(map[E][]Transition[S, E])
		m.transitions[t.From] = byEvent
	}
	byEvent[t.Event] = append(byEvent[t.Event], t)
}

// Fire returns the state event leads to from state from.
func (m *Machine[S, E]) Fire(ctx context.Context, from S, event E, data any) (S, error) {
	t, err := m.match(ctx, from, event, data)
	if err != nil {
		return from, err
	}
	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event, data); err != nil {
			return from, fmt.Errorf("action failed: %w", err)
		}
	}
	return t.To, nil
}

// CanFire reports whether Fire would find a transition. Actions do not run.
func (m *Machine[S, E]) CanFire(ctx context.Context, from S, event E, data any) bool {
	_, err := m.match(ctx, from, event, data)
	return err == nil
}

// Events lists the events that have at least one transition out of from,
// ignoring guards.
func (m *Machine[S, E]) Events(from S) []E {
	events := make([]E, 0, len(m.transitions[from]))
	for e := range m.transitions[from] {
		events = append(events, e)
	}
	return events
}

func (m *Machine[S, E]) match(ctx context.Context, from S, event E, data any) (*Transition[S, E], error) {
	candidates := m.transitions[from][event]
	if len(candidates) == 0 {
		return nil, &ErrNoTransitionAvailable{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}
	for i := range candidates {
		if passes(ctx, &candidates[i], data) {
			return &candidates[i], nil
		}
	}
	return nil, &ErrTransitionRejected{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
}

func passes[S, E comparable](ctx context.Context, t *Transition[S, E], data any) bool {
	for _, guard := range t.Guards {
		if !guard(ctx, t.From, t.Event, data) {
			return false
		}
	}
	return true
}
