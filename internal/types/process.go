package types

import (
	"time"

	"github.com/google/uuid"
)

// ProcessRow is one row of dispatcher_processes, decoded from the pd
// pool.
type ProcessRow struct {
	UUID         uuid.UUID
	SourceID     uint32
	State        DispatchState
	Mode         ProcessingMode
	SupervisorID uuid.NullUUID
	CreatedAt    time.Time // always UTC, as stored
}

// AssignedProcess is the JSON shape returned by POST
// /assign_process/{supervisor_id} on a successful claim.
type AssignedProcess struct {
	ID           string `json:"id"`
	SourceID     uint32 `json:"source_id"`
	State        string `json:"state"`
	Mode         string `json:"mode"`
	CreatedAtMS  int64  `json:"created_at"`
	SupervisorID string `json:"supervisor_id"`
}

// NewAssignedProcess projects a ProcessRow, post-assignment, into the
// wire shape. Callers pass the row as it reads immediately after
// AssignProcess succeeds, so State is always StateProcessing and
// SupervisorID is always set.
func NewAssignedProcess(row ProcessRow) AssignedProcess {
	return AssignedProcess{
		ID:           row.UUID.String(),
		SourceID:     row.SourceID,
		State:        row.State.String(),
		Mode:         row.Mode.String(),
		CreatedAtMS:  row.CreatedAt.UnixMilli(),
		SupervisorID: row.SupervisorID.UUID.String(),
	}
}
