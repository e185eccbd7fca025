package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// State names a lifecycle variant as persisted in the state column.
type State string

const (
	StateActive   State = "active"
	StateDone     State = "done"
	StateDeleted  State = "deleted"
	StateArchived State = "archived"
)

// Lifecycle is the structured state of an entity.
//
// The zero value is not valid; use [Active] or [RestoreLifecycle]. ArchivedFrom is only
// set in the archived variant and names the list the entity was archived from.
// Done takes precedence over deleted: a done entity cannot be deleted until it is restored.
type Lifecycle struct {
	state        State
	archivedFrom string
	changedAt    time.Time
}

// Active returns the initial lifecycle.
func Active(at time.Time) Lifecycle {
	return Lifecycle{state: StateActive, changedAt: at}
}

// RestoreLifecycle rebuilds a persisted lifecycle, rejecting unknown states.
func RestoreLifecycle(state State, archivedFrom string, changedAt time.Time) (Lifecycle, error) {
	switch state {
	case StateActive, StateDone, StateDeleted:
		return Lifecycle{state: state, changedAt: changedAt}, nil
	case StateArchived:
		return Lifecycle{state: state, archivedFrom: archivedFrom, changedAt: changedAt}, nil
	}
	return Lifecycle{}, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, state)
}

func (l Lifecycle) State() State         { return l.state }
func (l Lifecycle) ArchivedFrom() string { return l.archivedFrom }
func (l Lifecycle) ChangedAt() time.Time { return l.changedAt }
func (l Lifecycle) String() string       { return string(l.state) }

func (l Lifecycle) IsActive() bool   { return l.state == StateActive }
func (l Lifecycle) IsDone() bool     { return l.state == StateDone }
func (l Lifecycle) IsDeleted() bool  { return l.state == StateDeleted }
func (l Lifecycle) IsArchived() bool { return l.state == StateArchived }

// IsRestorable reports whether Restore would succeed.
func (l Lifecycle) IsRestorable() bool {
	return l.state == StateDone || l.state == StateDeleted || l.state == StateArchived
}

// HoldsTitle reports whether the entity takes part in sibling title uniqueness.
func (l Lifecycle) HoldsTitle() bool {
	return l.state == StateActive || l.state == StateDone
}

func (l Lifecycle) transition(s State, at time.Time) Lifecycle {
	return Lifecycle{state: s, changedAt: at}
}

// MarkDone moves an active entity to done.
func (l Lifecycle) MarkDone(at time.Time) (Lifecycle, error) {
	if l.state != StateActive {
		return l, l.invalid("mark done")
	}
	return l.transition(StateDone, at), nil
}

// Delete moves an active entity to deleted. Done entities must be restored first.
func (l Lifecycle) Delete(at time.Time) (Lifecycle, error) {
	if l.state != StateActive {
		return l, l.invalid("delete")
	}
	return l.transition(StateDeleted, at), nil
}

// Restore returns a done, deleted or archived entity to active, clearing archive framing.
func (l Lifecycle) Restore(at time.Time) (Lifecycle, error) {
	if !l.IsRestorable() {
		return l, l.invalid("restore")
	}
	return l.transition(StateActive, at), nil
}

// Archive records that the parent list named fromList was deleted.
//
// Only active and done entities are archived; deleted ones stay deleted.
func (l Lifecycle) Archive(fromList string, at time.Time) (Lifecycle, error) {
	if !l.HoldsTitle() {
		return l, l.invalid("archive")
	}
	return Lifecycle{state: StateArchived, archivedFrom: fromList, changedAt: at}, nil
}

func (l Lifecycle) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, op, l.state)
}

type lifecycleJSON struct {
	State        State     `json:"state"`
	ArchivedFrom string    `json:"archivedFrom,omitempty"`
	ChangedAt    time.Time `json:"changedAt"`
}

func (l Lifecycle) MarshalJSON() ([]byte, error) {
	return json.Marshal(lifecycleJSON{State: l.state, ArchivedFrom: l.archivedFrom, ChangedAt: l.changedAt})
}

func (l *Lifecycle) UnmarshalJSON(data []byte) error {
	var raw lifecycleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored, err := RestoreLifecycle(raw.State, raw.ArchivedFrom, raw.ChangedAt)
	if err != nil {
		return err
	}
	*l = restored
	return nil
}
