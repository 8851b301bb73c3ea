package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition    = errors.New("statemachine.invalid_transition")
	ErrTransitionNotAllowed = errors.New("statemachine.transition_not_allowed")
)

// ErrNoTransitionAvailable indicates the table has no transition for the
// state and event.
type ErrNoTransitionAvailable struct {
	State string
	Event string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for event '%s'", e.State, e.Event)
}

func (e *ErrNoTransitionAvailable) Is(target error) bool {
	return target == ErrTransitionNotAllowed
}

// ErrTransitionRejected indicates guards blocked every candidate transition.
type ErrTransitionRejected struct {
	State string
	Event string
}

func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("transition from state '%s' for event '%s' was rejected by guards", e.State, e.Event)
}

func (e *ErrTransitionRejected) Is(target error) bool {
	return target == ErrTransitionNotAllowed
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

func IsTransitionRejectedError(err error) bool {
	var e *ErrTransitionRejected
	return errors.As(err, &e)
}
