// Package reconcile keeps an expense list responsive during edit/delete
// round-trips. A tentative mutation is applied to an overlay view while the
// authoritative list stays untouched; the overlay either collapses into the
// authoritative list when the server confirms, or is discarded on failure.
package reconcile

import (
	"errors"

	"kakeibo/internal/core"
)

// State tracks where a staged mutation is in its lifecycle.
type State int

const (
	// StateIdle means no mutation is staged.
	StateIdle State = iota
	// StatePending means a mutation is applied to the overlay and awaiting
	// the server's verdict.
	StatePending
	// StateCommitted means the last mutation was confirmed and folded into
	// the authoritative list.
	StateCommitted
	// StateRolledBack means the last mutation failed and its overlay was
	// discarded.
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolledBack"
	default:
		return "idle"
	}
}

var (
	// ErrMutationInFlight is returned when staging while another mutation
	// is still pending. At most one mutation is modeled at a time.
	ErrMutationInFlight = errors.New("another mutation is in flight")
	// ErrNothingPending is returned by Commit/Rollback without a staged
	// mutation.
	ErrNothingPending = errors.New("no mutation pending")
)

type actionKind int

const (
	actionUpdate actionKind = iota
	actionDelete
)

type pendingAction struct {
	kind    actionKind
	id      string
	expense core.Expense // tentative record, update only
}

// Overlay derives a tentative view of an expense list by applying zero or
// one pending mutation to the authoritative snapshot. Not safe for
// concurrent use; each session owns its list.
type Overlay struct {
	authoritative []core.Expense
	pending       *pendingAction
	state         State
}

// New creates an overlay over the authoritative expense list.
func New(expenses []core.Expense) *Overlay {
	return &Overlay{authoritative: snapshot(expenses), state: StateIdle}
}

// Reset replaces the authoritative list, dropping any staged mutation.
// Used when a fresh page of server data arrives.
func (o *Overlay) Reset(expenses []core.Expense) {
	o.authoritative = snapshot(expenses)
	o.pending = nil
	o.state = StateIdle
}

// State returns the lifecycle state of the last staged mutation.
func (o *Overlay) State() State {
	return o.state
}

// View returns the list as the user should see it: the authoritative list
// with the pending mutation, if any, applied.
func (o *Overlay) View() []core.Expense {
	if o.pending == nil {
		return snapshot(o.authoritative)
	}
	out := make([]core.Expense, 0, len(o.authoritative))
	for _, e := range o.authoritative {
		switch {
		case e.ID != o.pending.id:
			out = append(out, e)
		case o.pending.kind == actionUpdate:
			out = append(out, o.pending.expense)
		// delete: skip the record
		}
	}
	return out
}

// StageUpdate applies a tentative edit to the overlay.
func (o *Overlay) StageUpdate(expense core.Expense) error {
	if o.pending != nil {
		return ErrMutationInFlight
	}
	o.pending = &pendingAction{kind: actionUpdate, id: expense.ID, expense: expense}
	o.state = StatePending
	return nil
}

// StageDelete applies a tentative removal to the overlay.
func (o *Overlay) StageDelete(id string) error {
	if o.pending != nil {
		return ErrMutationInFlight
	}
	o.pending = &pendingAction{kind: actionDelete, id: id}
	o.state = StatePending
	return nil
}

// Commit folds the server's confirmed record into the authoritative list.
// The server response wins over the tentative record staged locally.
func (o *Overlay) Commit(confirmed core.Expense) error {
	if o.pending == nil || o.pending.kind != actionUpdate {
		return ErrNothingPending
	}
	for i, e := range o.authoritative {
		if e.ID == o.pending.id {
			o.authoritative[i] = confirmed
			break
		}
	}
	o.pending = nil
	o.state = StateCommitted
	return nil
}

// CommitDelete removes the staged record from the authoritative list after
// the server confirmed the deletion.
func (o *Overlay) CommitDelete() error {
	if o.pending == nil || o.pending.kind != actionDelete {
		return ErrNothingPending
	}
	out := o.authoritative[:0]
	for _, e := range o.authoritative {
		if e.ID != o.pending.id {
			out = append(out, e)
		}
	}
	o.authoritative = out
	o.pending = nil
	o.state = StateCommitted
	return nil
}

// Rollback discards the staged mutation; the overlay reverts to the last
// authoritative snapshot. The mutation is not retried.
func (o *Overlay) Rollback() error {
	if o.pending == nil {
		return ErrNothingPending
	}
	o.pending = nil
	o.state = StateRolledBack
	return nil
}

func snapshot(expenses []core.Expense) []core.Expense {
	out := make([]core.Expense, len(expenses))
	copy(out, expenses)
	return out
}
