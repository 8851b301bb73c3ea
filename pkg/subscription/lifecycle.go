package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/gpportal/pkg/statemachine"
)

// Trigger is what moves a subscription between statuses.
type Trigger string

const (
	// TriggerCreate brings a new row into its first status.
	TriggerCreate Trigger = "create"
	// TriggerSync applies a status reported by the payment provider.
	TriggerSync   Trigger = "sync"
	TriggerCancel Trigger = "cancel"
	TriggerExpire Trigger = "expire"
)

// statusNone is the pseudo-status of a row that does not exist yet.
const statusNone Status = ""

// openStatuses can still change. CANCELLED and EXPIRED are terminal: once
// there, a row only ever gets replaced by a new subscription.
var openStatuses = []Status{StatusActive, StatusTrialing, StatusPastDue, StatusIncomplete}

var lifecycle = statemachine.MustNew(lifecycleTransitions()...)

func lifecycleTransitions() []statemachine.Option[Status, Trigger] {
	var opts []statemachine.Option[Status, Trigger]
	for _, to := range openStatuses {
		opts = append(opts, statemachine.WithTransition(statusNone, to, TriggerCreate, statemachine.WithGuard(reported(to))))
	}
	targets := append([]Status{StatusCancelled, StatusExpired}, openStatuses...)
	for _, from := range openStatuses {
		for _, to := range targets {
			opts = append(opts, statemachine.WithTransition(from, to, TriggerSync, statemachine.WithGuard(reported(to))))
		}
		opts = append(opts,
			statemachine.WithTransition(from, StatusCancelled, TriggerCancel),
			statemachine.WithTransition(from, StatusExpired, TriggerExpire),
		)
	}
	return opts
}

// reported passes when the event data names to as the requested status.
func reported(to Status) statemachine.Guard[Status, Trigger] {
	return func(_ context.Context, _ Status, _ Trigger, data any) bool {
		s, ok := data.(Status)
		return ok && s == to
	}
}

// Terminal reports whether no trigger can move a subscription out of s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

// NextStatus returns the status trigger moves a subscription from "from" to.
// want is the requested status for TriggerCreate and TriggerSync and is
// ignored otherwise. Use an empty from for rows that do not exist yet.
// A disallowed move returns ErrInvalidTransition joined with ErrConflict.
func NextStatus(ctx context.Context, from Status, trigger Trigger, want Status) (Status, error) {
	var data any
	if trigger == TriggerCreate || trigger == TriggerSync {
		data = want
	}
	next, err := lifecycle.Fire(ctx, from, trigger, data)
	if err != nil {
		return from, errors.Join(ErrConflict, ErrInvalidTransition,
			fmt.Errorf("%s %q -> %q: %w", trigger, from, want, err))
	}
	return next, nil
}

// CheckSync reports whether a provider-reported status may overwrite the
// stored one. Stores call it under the row lock before writing.
func CheckSync(ctx context.Context, from, to Status) error {
	trigger := TriggerSync
	if from == statusNone {
		trigger = TriggerCreate
	}
	_, err := NextStatus(ctx, from, trigger, to)
	return err
}
