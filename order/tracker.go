package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateID is returned when a request reuses an id that is still
	// in a non-terminal state. Resubmission must not create a second broker
	// order for the same intent.
	ErrDuplicateID = errors.New("order id already active")

	ErrUnknownOrder = errors.New("unknown order id")
)

// Tracker owns the in-memory lifecycle state of every order in the session.
// It is used only by the control loop and is not safe for concurrent use.
type Tracker struct {
	orders map[string]*Record
	seq    []string // ids in request order
}

func NewTracker() *Tracker {
	return &Tracker{orders: make(map[string]*Record)}
}

// Request registers a new order in StatusRequested. An id already present
// and non-terminal is rejected outright.
func (t *Tracker) Request(rec *Record) error {
	if existing, ok := t.orders[rec.ID]; ok && !existing.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrDuplicateID, rec.ID, existing.Status)
	}
	rec.Status = StatusRequested
	t.orders[rec.ID] = rec
	t.seq = append(t.seq, rec.ID)
	return nil
}

// Transition moves an order to the next status, enforcing the state machine.
func (t *Tracker) Transition(id string, next Status, reason string, now time.Time) (*Record, error) {
	rec, ok := t.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	if !rec.Status.canBecome(next) {
		return nil, fmt.Errorf("order %s: illegal transition %s -> %s", id, rec.Status, next)
	}

	rec.Status = next
	switch next {
	case StatusSubmitted:
		rec.SubmittedAt = now
	case StatusFilled:
		rec.FilledAt = now
	case StatusRejected, StatusFailed:
		rec.RejectionReason = reason
	}
	return rec, nil
}

// Get returns the record for id, if tracked.
func (t *Tracker) Get(id string) (*Record, bool) {
	rec, ok := t.orders[id]
	return rec, ok
}

// Submitted returns all orders currently in StatusSubmitted, oldest first.
func (t *Tracker) Submitted() []*Record {
	var out []*Record
	for _, id := range t.seq {
		if rec := t.orders[id]; rec.Status == StatusSubmitted {
			out = append(out, rec)
		}
	}
	return out
}

// StaleSubmitted returns submitted orders older than timeout. Callers must
// reconcile these against the broker before failing them; a timeout alone
// never proves the absence of a fill.
func (t *Tracker) StaleSubmitted(now time.Time, timeout time.Duration) []*Record {
	var out []*Record
	for _, rec := range t.Submitted() {
		if now.Sub(rec.SubmittedAt) > timeout {
			out = append(out, rec)
		}
	}
	return out
}

// Active reports whether any non-terminal order exists for the symbol/side.
// Used to suppress duplicate intents inside the dedupe window.
func (t *Tracker) Active(symbol string, side string) bool {
	for _, rec := range t.orders {
		if rec.Symbol == symbol && string(rec.Side) == side && !rec.Status.Terminal() {
			return true
		}
	}
	return false
}
