// Package types holds the data shapes shared across the dispatcher:
// the process state/mode enums, the row shape returned by the
// repository, and the error kinds the rest of the packages wrap.
package types

import (
	"fmt"

	"github.com/google/uuid"
)

// DispatchState is the `state` column of dispatcher_processes.
type DispatchState string

// The full set of states a process can be in. Unknown values read
// from the database are a schema-invariant violation, not a
// recoverable error: ParseDispatchState panics on them.
const (
	StateCreated    DispatchState = "created"
	StatePending    DispatchState = "pending"
	StateProcessing DispatchState = "processing"
	StateError      DispatchState = "error"
	StateCompleted  DispatchState = "completed"
	StateFailed     DispatchState = "failed"
)

// ParseDispatchState validates a raw DB string against the known
// state set. It panics on an unrecognized value: the schema is
// externally owned, so an unknown state string means the database and
// this binary have drifted out of sync, not that the caller made a
// mistake it can recover from.
func ParseDispatchState(raw string) DispatchState {
	switch DispatchState(raw) {
	case StateCreated, StatePending, StateProcessing, StateError, StateCompleted, StateFailed:
		return DispatchState(raw)
	default:
		panic(fmt.Sprintf("types: unexpected dispatch state %q", raw))
	}
}

// IsTerminal reports whether the state is one from which no further
// scheduling or claiming is possible.
func (s DispatchState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// IsClaimableBy reports whether a process in this state, owned by
// ownerID (which may be the zero UUID when unset), can be claimed by
// supervisorID. created/pending are open to any supervisor; error is
// only claimable by the supervisor that last held it.
func (s DispatchState) IsClaimableBy(ownerID uuid.NullUUID, supervisorID uuid.UUID) bool {
	switch s {
	case StateCreated, StatePending:
		return !ownerID.Valid
	case StateError:
		return ownerID.Valid && ownerID.UUID == supervisorID
	default:
		return false
	}
}

func (s DispatchState) String() string { return string(s) }

// ProcessingMode is the `mode` column of dispatcher_processes.
type ProcessingMode uint8

// The Scheduler only ever produces ModeRegular; ModeSandbox processes
// are created by some other, out-of-scope path but still need to
// round-trip correctly when read back by the Assigner.
const (
	ModeRegular ProcessingMode = 1
	ModeSandbox ProcessingMode = 2
)

// ParseProcessingMode validates a raw DB value. It panics on an
// unrecognized value for the same reason ParseDispatchState does.
func ParseProcessingMode(raw uint8) ProcessingMode {
	switch ProcessingMode(raw) {
	case ModeRegular, ModeSandbox:
		return ProcessingMode(raw)
	default:
		panic(fmt.Sprintf("types: unexpected processing mode %d", raw))
	}
}

// String renders the mode the way the assign-process JSON response
// spells it.
func (m ProcessingMode) String() string {
	switch m {
	case ModeRegular:
		return "Regular"
	case ModeSandbox:
		return "Sandbox"
	default:
		panic(fmt.Sprintf("types: unexpected processing mode %d", uint8(m)))
	}
}
