package dispatch

import (
	"context"

	"github.com/7krasov/process-dispatcher/internal/keyedmutex"
	"github.com/7krasov/process-dispatcher/internal/repository"
	"github.com/7krasov/process-dispatcher/internal/types"
	"github.com/google/uuid"
)

// repoAdapter narrows *repository.Repository's concrete stream return
// types down to the Repository interface above, so the rest of this
// package never imports the repository package directly.
type repoAdapter struct {
	repo *repository.Repository
}

// NewRepository wraps a concrete *repository.Repository for use by the
// Scheduler and Assigner.
func NewRepository(repo *repository.Repository) Repository {
	return repoAdapter{repo: repo}
}

func (a repoAdapter) StreamActiveSourceIds(ctx context.Context) (SourceIDStream, error) {
	return a.repo.StreamActiveSourceIds(ctx)
}

func (a repoAdapter) StreamClaimableSourceIds(
	ctx context.Context, supervisorID uuid.UUID, limit int,
) (SourceIDStream, error) {
	return a.repo.StreamClaimableSourceIds(ctx, supervisorID, limit)
}

func (a repoAdapter) StreamClaimableProcesses(
	ctx context.Context, sourceID uint32, limit int,
) (ProcessStream, error) {
	return a.repo.StreamClaimableProcesses(ctx, sourceID, limit)
}

func (a repoAdapter) LatestProcess(ctx context.Context, sourceID uint32) (types.ProcessRow, bool, error) {
	return a.repo.LatestProcess(ctx, sourceID)
}

func (a repoAdapter) InsertProcess(
	ctx context.Context, sourceID uint32, state types.DispatchState, mode types.ProcessingMode,
) (uuid.UUID, error) {
	return a.repo.InsertProcess(ctx, sourceID, state, mode)
}

func (a repoAdapter) AssignProcess(
	ctx context.Context, id uuid.UUID, supervisorID uuid.UUID, newState types.DispatchState,
) error {
	return a.repo.AssignProcess(ctx, id, supervisorID, newState)
}

// keyedMutexAdapter narrows *keyedmutex.KeyedMutex[uint32]'s concrete
// *keyedmutex.Handle return type down to the Locker interface above.
type keyedMutexAdapter struct {
	km *keyedmutex.KeyedMutex[uint32]
}

// NewKeyedMutex wraps a concrete keyed mutex for use by the Scheduler
// and Assigner.
func NewKeyedMutex(km *keyedmutex.KeyedMutex[uint32]) KeyedMutex {
	return keyedMutexAdapter{km: km}
}

func (a keyedMutexAdapter) Acquire(key uint32) Locker {
	return a.km.Acquire(key)
}
