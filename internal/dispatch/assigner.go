package dispatch

import (
	"context"
	"time"

	"github.com/7krasov/process-dispatcher/internal/metrics"
	"github.com/7krasov/process-dispatcher/internal/stopper"
	"github.com/7krasov/process-dispatcher/internal/types"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// claimableSourceLimit and claimableProcessLimit are the Assigner's
// per-call fan-out caps from spec.md §4.5.
const (
	claimableSourceLimit  = 10
	claimableProcessLimit = 1
)

// Assigner implements AssignProcess: given a supervisor id, finds the
// oldest claimable process across up to ten candidate sources and
// atomically transitions it to processing.
type Assigner struct {
	repo Repository
	km   KeyedMutex
}

// NewAssigner constructs an Assigner against repo and km.
func NewAssigner(repo Repository, km KeyedMutex) *Assigner {
	return &Assigner{repo: repo, km: km}
}

// AssignProcess runs the algorithm from spec.md §4.5. found is false
// when no candidate yielded a claimable process.
func (a *Assigner) AssignProcess(
	ctx *stopper.Context, supervisorID uuid.UUID,
) (assigned types.AssignedProcess, found bool, err error) {
	start := time.Now()
	outcome := metrics.OutcomeEmpty
	defer func() {
		metrics.AssignerClaimDuration.Observe(time.Since(start).Seconds())
		metrics.AssignerClaims.WithLabelValues(outcome).Inc()
	}()

	stream, err := stopper.WithCancellation(ctx, "assigner.stream-open",
		func(c context.Context) (SourceIDStream, error) {
			return a.repo.StreamClaimableSourceIds(c, supervisorID, claimableSourceLimit)
		})
	if err != nil {
		outcome = metrics.OutcomeError
		return types.AssignedProcess{}, false, err
	}
	defer stream.Close()

	for {
		item, err := stopper.WithCancellation(ctx, "assigner.stream-next",
			func(context.Context) (sourceIDItem, error) {
				id, ok, err := stream.Next()
				return sourceIDItem{id: id, ok: ok}, err
			})
		if err != nil {
			outcome = metrics.OutcomeError
			return types.AssignedProcess{}, false, err
		}
		if !item.ok {
			return types.AssignedProcess{}, false, nil
		}

		row, claimed, err := a.tryClaimSource(ctx, item.id, supervisorID)
		if err != nil {
			outcome = metrics.OutcomeError
			return types.AssignedProcess{}, false, err
		}
		if claimed {
			outcome = metrics.OutcomeAssigned
			log.WithFields(log.Fields{
				"source_id":     item.id,
				"supervisor_id": supervisorID,
				"uuid":          row.UUID,
			}).Info("assigner: process assigned")
			return types.NewAssignedProcess(row), true, nil
		}
	}
}

// tryClaimSource inspects the single oldest claimable process for a
// candidate source id, holding the keyed mutex for the duration, and
// claims it if eligible. claimed is false (with no error) whenever the
// candidate yields nothing to claim, so the caller moves on.
func (a *Assigner) tryClaimSource(
	ctx *stopper.Context, sourceID uint32, supervisorID uuid.UUID,
) (row types.ProcessRow, claimed bool, err error) {
	handle := a.km.Acquire(sourceID)
	handle.Lock()
	defer handle.Unlock()

	stream, err := stopper.WithCancellation(ctx, "assigner.processes-stream-open",
		func(c context.Context) (ProcessStream, error) {
			return a.repo.StreamClaimableProcesses(c, sourceID, claimableProcessLimit)
		})
	if err != nil {
		return types.ProcessRow{}, false, err
	}
	defer stream.Close()

	item, err := stopper.WithCancellation(ctx, "assigner.processes-stream-next",
		func(context.Context) (processItem, error) {
			row, ok, err := stream.Next()
			return processItem{row: row, ok: ok}, err
		})
	if err != nil {
		return types.ProcessRow{}, false, err
	}
	if !item.ok {
		return types.ProcessRow{}, false, nil
	}

	candidate := item.row
	if candidate.State.IsTerminal() || candidate.SupervisorID.Valid {
		return types.ProcessRow{}, false, nil
	}

	if err := stopper.WithCancellationErr(ctx, "assigner.assign-process",
		func(c context.Context) error {
			return a.repo.AssignProcess(c, candidate.UUID, supervisorID, types.StateProcessing)
		}); err != nil {
		return types.ProcessRow{}, false, err
	}

	candidate.State = types.StateProcessing
	candidate.SupervisorID = uuid.NullUUID{UUID: supervisorID, Valid: true}
	return candidate, true, nil
}

type processItem struct {
	row types.ProcessRow
	ok  bool
}
