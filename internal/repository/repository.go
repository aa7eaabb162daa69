package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/7krasov/process-dispatcher/internal/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// dbTimeLayout is the format MySQL TIMESTAMP(3) columns are read back
// as by this repository: "%Y-%m-%d %H:%M:%S%.f" in the spec's own
// terms. It is always interpreted as UTC, per spec §6.
const dbTimeLayout = "2006-01-02 15:04:05.999999999"

// Repository is typed, streaming access to the mvp (sources catalog)
// and pd (process audit/assignment) pools.
type Repository struct {
	mvp *sql.DB
	pd  *sql.DB
}

// Open builds both pools. If either initial connection fails,
// construction fails and no partially-open pool is leaked.
func Open(ctx context.Context, mvpDSN, pdDSN string, maxConns uint32) (*Repository, error) {
	mvp, err := openMySQLPool(ctx, "mvp", mvpDSN, maxConns)
	if err != nil {
		return nil, err
	}

	pd, err := openMySQLPool(ctx, "pd", pdDSN, maxConns)
	if err != nil {
		_ = mvp.Close()
		return nil, err
	}

	return &Repository{mvp: mvp, pd: pd}, nil
}

// Close releases both pools.
func (r *Repository) Close() error {
	mvpErr := r.mvp.Close()
	pdErr := r.pd.Close()
	if mvpErr != nil {
		return mvpErr
	}
	return pdErr
}

// StreamActiveSourceIds produces source ids where status = 'run', in
// database order. The stream is lazy: rows are not pulled until
// Next is called.
func (r *Repository) StreamActiveSourceIds(ctx context.Context) (*SourceIDStream, error) {
	rows, err := r.mvp.QueryContext(ctx, `SELECT id FROM sources WHERE status = ?`, "run")
	if err != nil {
		return nil, types.NewDbError("mvp", "StreamActiveSourceIds", err)
	}
	return &SourceIDStream{rows: rows, pool: "mvp", op: "StreamActiveSourceIds"}, nil
}

// StreamClaimableSourceIds produces source ids whose most recent
// claimable row is either (created|pending) with no supervisor, or
// (error) owned by supervisorID, ordered by created_at ascending and
// capped at limit. The query does not deduplicate; callers must
// tolerate repeats.
func (r *Repository) StreamClaimableSourceIds(
	ctx context.Context, supervisorID uuid.UUID, limit int,
) (*SourceIDStream, error) {
	const q = `
SELECT dp.source_id
FROM dispatcher_processes dp
INNER JOIN (
	SELECT source_id, MAX(created_at) AS created_at
	FROM dispatcher_processes
	GROUP BY source_id
) latest ON latest.source_id = dp.source_id AND latest.created_at = dp.created_at
WHERE
	(dp.state IN ('created', 'pending') AND dp.supervisor_id IS NULL)
	OR (dp.state = 'error' AND dp.supervisor_id = ?)
ORDER BY dp.created_at ASC
LIMIT ?`

	rows, err := r.pd.QueryContext(ctx, q, supervisorID[:], limit)
	if err != nil {
		return nil, types.NewDbError("pd", "StreamClaimableSourceIds", err)
	}
	return &SourceIDStream{rows: rows, pool: "pd", op: "StreamClaimableSourceIds"}, nil
}

// StreamClaimableProcesses produces the oldest claimable
// (created|pending) rows for sourceID, up to limit.
func (r *Repository) StreamClaimableProcesses(
	ctx context.Context, sourceID uint32, limit int,
) (*ProcessStream, error) {
	const q = `
SELECT uuid, source_id, state, mode, supervisor_id, created_at
FROM dispatcher_processes
WHERE source_id = ? AND state IN ('created', 'pending')
ORDER BY created_at ASC
LIMIT ?`

	rows, err := r.pd.QueryContext(ctx, q, sourceID, limit)
	if err != nil {
		return nil, types.NewDbError("pd", "StreamClaimableProcesses", err)
	}
	return &ProcessStream{rows: rows, pool: "pd", op: "StreamClaimableProcesses"}, nil
}

// LatestProcess returns the newest row by created_at for sourceID,
// across both terminal and active states, or ok=false if none exists.
func (r *Repository) LatestProcess(ctx context.Context, sourceID uint32) (row types.ProcessRow, ok bool, err error) {
	const q = `
SELECT uuid, source_id, state, mode, supervisor_id, created_at
FROM dispatcher_processes
WHERE source_id = ?
ORDER BY created_at DESC
LIMIT 1`

	r2 := r.pd.QueryRowContext(ctx, q, sourceID)
	row, err = scanProcessRow(r2.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ProcessRow{}, false, nil
	}
	if err != nil {
		return types.ProcessRow{}, false, types.NewDbError("pd", "LatestProcess", err)
	}
	return row, true, nil
}

// InsertProcess generates a fresh UUID, writes the row, and returns
// the UUID on success. mode and source_id are write-once at insert.
func (r *Repository) InsertProcess(
	ctx context.Context, sourceID uint32, state types.DispatchState, mode types.ProcessingMode,
) (uuid.UUID, error) {
	id := uuid.New()

	const q = `
INSERT INTO dispatcher_processes (uuid, source_id, state, mode)
VALUES (?, ?, ?, ?)`

	if _, err := r.pd.ExecContext(ctx, q, id[:], sourceID, string(state), uint8(mode)); err != nil {
		return uuid.Nil, types.NewDbError("pd", "InsertProcess", err)
	}
	return id, nil
}

// AssignProcess transitions the row identified by id, setting
// supervisorID and newState in one atomic write. Callers must not
// call this twice for the same id; the method itself makes no
// idempotence guarantee beyond "both calls reach the same final row".
func (r *Repository) AssignProcess(
	ctx context.Context, id uuid.UUID, supervisorID uuid.UUID, newState types.DispatchState,
) error {
	const q = `
UPDATE dispatcher_processes
SET supervisor_id = ?, state = ?
WHERE uuid = ?`

	if _, err := r.pd.ExecContext(ctx, q, supervisorID[:], string(newState), id[:]); err != nil {
		return types.NewDbError("pd", "AssignProcess", err)
	}
	return nil
}

// scannable matches both *sql.Row.Scan and *sql.Rows.Scan so the row
// decoding logic below is shared by both the single-row and streaming
// read paths.
type scannable func(dest ...any) error

func scanProcessRow(scan scannable) (types.ProcessRow, error) {
	var (
		rawUUID       []byte
		sourceID      uint32
		rawState      string
		rawMode       uint8
		rawSupervisor []byte
		rawCreatedAt  string
	)

	if err := scan(&rawUUID, &sourceID, &rawState, &rawMode, &rawSupervisor, &rawCreatedAt); err != nil {
		return types.ProcessRow{}, err
	}

	id, err := uuid.FromBytes(rawUUID)
	if err != nil {
		return types.ProcessRow{}, errors.Wrap(err, "decoding process uuid")
	}

	createdAt, err := time.ParseInLocation(dbTimeLayout, rawCreatedAt, time.UTC)
	if err != nil {
		return types.ProcessRow{}, errors.Wrap(err, "decoding process created_at")
	}

	var supervisorID uuid.NullUUID
	if rawSupervisor != nil {
		sup, err := uuid.FromBytes(rawSupervisor)
		if err != nil {
			return types.ProcessRow{}, errors.Wrap(err, "decoding process supervisor_id")
		}
		supervisorID = uuid.NullUUID{UUID: sup, Valid: true}
	}

	return types.ProcessRow{
		UUID:         id,
		SourceID:     sourceID,
		State:        types.ParseDispatchState(rawState),
		Mode:         types.ParseProcessingMode(rawMode),
		SupervisorID: supervisorID,
		CreatedAt:    createdAt,
	}, nil
}
