// Package statemachine provides finite state machines described by a
// transition table with guards and actions.
//
// A Machine holds no current state. It answers "where does this event take
// an entity that is in state X", so one table can serve every row of a
// table in the database:
//
//	m := statemachine.MustNew(
//		statemachine.WithTransition(Draft, Published, Publish),
//		statemachine.WithTransition(Published, Archived, Archive,
//			statemachine.WithGuard(ownerOnly),
//		),
//	)
//	next, err := m.Fire(ctx, doc.State, Publish, doc)
//
// Several transitions may share a (from, event) pair. The first one whose
// guards all pass wins, which lets guards branch on the event data.
// Actions run in order before the target state is returned; the first
// action error aborts the transition.
//
// Fire returns *ErrNoTransitionAvailable when the table has no entry for
// the pair and *ErrTransitionRejected when guards blocked every candidate.
// Both match ErrTransitionNotAllowed with errors.Is.
package statemachine
