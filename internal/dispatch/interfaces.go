// Package dispatch implements the Scheduler and the Assigner: the two
// consumers of the Repository and the KeyedMutex that together make
// up the dispatcher's core scheduling and claiming logic from
// spec.md §4.4 and §4.5.
package dispatch

import (
	"context"

	"github.com/7krasov/process-dispatcher/internal/types"
	"github.com/google/uuid"
)

// SourceIDStream is the minimal streaming contract the Scheduler and
// Assigner need from a source-id cursor, narrow enough that tests can
// supply an in-memory fake instead of a live database.
type SourceIDStream interface {
	Next() (id uint32, ok bool, err error)
	Close() error
}

// ProcessStream is the equivalent streaming contract for process rows.
type ProcessStream interface {
	Next() (row types.ProcessRow, ok bool, err error)
	Close() error
}

// Repository is the subset of internal/repository.Repository that
// dispatch depends on.
type Repository interface {
	StreamActiveSourceIds(ctx context.Context) (SourceIDStream, error)
	StreamClaimableSourceIds(ctx context.Context, supervisorID uuid.UUID, limit int) (SourceIDStream, error)
	StreamClaimableProcesses(ctx context.Context, sourceID uint32, limit int) (ProcessStream, error)
	LatestProcess(ctx context.Context, sourceID uint32) (row types.ProcessRow, ok bool, err error)
	InsertProcess(ctx context.Context, sourceID uint32, state types.DispatchState, mode types.ProcessingMode) (uuid.UUID, error)
	AssignProcess(ctx context.Context, id uuid.UUID, supervisorID uuid.UUID, newState types.DispatchState) error
}

// Locker is the handle contract the KeyedMutex hands back; satisfied
// by *keyedmutex.Handle.
type Locker interface {
	Lock()
	Unlock()
}

// KeyedMutex is the subset of internal/keyedmutex.KeyedMutex[uint32]
// that dispatch depends on.
type KeyedMutex interface {
	Acquire(key uint32) Locker
}
