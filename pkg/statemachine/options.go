package statemachine

import "fmt"

// Option configures a Machine during construction.
type Option[S, E comparable] func(*Machine[S, E]) error

// TransitionOption configures a single transition.
type TransitionOption[S, E comparable] func(*Transition[S, E])

// New builds a Machine from opts.
func New[S, E comparable](opts ...Option[S, E]) (*Machine[S, E], error) {
	m := &Machine[S, E]{transitions: make(map[S]map[E][]Transition[S, E])}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is New that panics on error. Meant for package-level tables.
func MustNew[S, E comparable](opts ...Option[S, E]) *Machine[S, E] {
	m, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return m
}

// WithTransition adds one transition.
func WithTransition[S, E comparable](from, to S, event E, opts ...TransitionOption[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		t := Transition[S, E]{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		m.add(t)
		return nil
	}
}

// WithTransitions adds a batch of transitions. Nil guards and actions are
// rejected.
func WithTransitions[S, E comparable](transitions []Transition[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		for i, t := range transitions {
			for _, g := range t.Guards {
				if g == nil {
					return fmt.Errorf("%w: transition[%d] %v->%v on %v has a nil guard", ErrInvalidTransition, i, t.From, t.To, t.Event)
				}
			}
			for _, a := range t.Actions {
				if a == nil {
					return fmt.Errorf("%w: transition[%d] %v->%v on %v has a nil action", ErrInvalidTransition, i, t.From, t.To, t.Event)
				}
			}
			m.add(t)
		}
		return nil
	}
}

func WithGuard[S, E comparable](guard Guard[S, E]) TransitionOption[S, E] {
	return func(t *Transition[S, E]) {
		if guard != nil {
			t.Guards = append(t.Guards, guard)
		}
	}
}

func WithAction[S, E comparable](action Action[S, E]) TransitionOption[S, E] {
	return func(t *Transition[S, E]) {
		if action != nil {
			t.Actions = append(t.Actions, action)
		}
	}
}
