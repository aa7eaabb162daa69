package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/7krasov/process-dispatcher/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*Repository, sqlmock.Sqlmock, sqlmock.Sqlmock) {
	t.Helper()

	mvpDB, mvpMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mvpDB.Close() })

	pdDB, pdMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = pdDB.Close() })

	return &Repository{mvp: mvpDB, pd: pdDB}, mvpMock, pdMock
}

func TestStreamActiveSourceIds(t *testing.T) {
	repo, mvpMock, _ := newTestRepo(t)

	rows := sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2)
	mvpMock.ExpectQuery(`SELECT id FROM sources WHERE status = \?`).
		WithArgs("run").
		WillReturnRows(rows)

	stream, err := repo.StreamActiveSourceIds(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	var got []uint32
	for {
		id, ok, err := stream.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, id)
	}

	assert.Equal(t, []uint32{1, 2}, got)
	assert.NoError(t, mvpMock.ExpectationsWereMet())
}

func TestLatestProcessReturnsNotFound(t *testing.T) {
	repo, _, pdMock := newTestRepo(t)

	pdMock.ExpectQuery(`SELECT uuid, source_id, state, mode, supervisor_id, created_at`).
		WithArgs(uint32(7)).
		WillReturnRows(sqlmock.NewRows(nil))

	_, ok, err := repo.LatestProcess(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestProcessDecodesRow(t *testing.T) {
	repo, _, pdMock := newTestRepo(t)

	id := uuid.New()
	sup := uuid.New()
	rows := sqlmock.NewRows([]string{"uuid", "source_id", "state", "mode", "supervisor_id", "created_at"}).
		AddRow(id[:], uint32(7), "processing", uint8(1), sup[:], "2024-06-01 07:00:00.000")

	pdMock.ExpectQuery(`SELECT uuid, source_id, state, mode, supervisor_id, created_at`).
		WithArgs(uint32(7)).
		WillReturnRows(rows)

	row, ok, err := repo.LatestProcess(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, id, row.UUID)
	assert.Equal(t, uint32(7), row.SourceID)
	assert.Equal(t, types.StateProcessing, row.State)
	assert.Equal(t, types.ModeRegular, row.Mode)
	assert.True(t, row.SupervisorID.Valid)
	assert.Equal(t, sup, row.SupervisorID.UUID)
	assert.Equal(t, time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC), row.CreatedAt)
}

func TestLatestProcessDecodesNullSupervisor(t *testing.T) {
	repo, _, pdMock := newTestRepo(t)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"uuid", "source_id", "state", "mode", "supervisor_id", "created_at"}).
		AddRow(id[:], uint32(7), "created", uint8(1), nil, "2024-06-01 07:00:00.000")

	pdMock.ExpectQuery(`SELECT uuid, source_id, state, mode, supervisor_id, created_at`).
		WithArgs(uint32(7)).
		WillReturnRows(rows)

	row, ok, err := repo.LatestProcess(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, row.SupervisorID.Valid)
}

func TestInsertProcessReturnsGeneratedUUID(t *testing.T) {
	repo, _, pdMock := newTestRepo(t)

	pdMock.ExpectExec(`INSERT INTO dispatcher_processes`).
		WithArgs(sqlmock.AnyArg(), uint32(7), "created", uint8(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.InsertProcess(context.Background(), 7, types.StateCreated, types.ModeRegular)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.NoError(t, pdMock.ExpectationsWereMet())
}

func TestAssignProcessBindsSupervisorAndState(t *testing.T) {
	repo, _, pdMock := newTestRepo(t)

	id := uuid.New()
	sup := uuid.New()
	pdMock.ExpectExec(`UPDATE dispatcher_processes`).
		WithArgs(sup[:], "processing", id[:]).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AssignProcess(context.Background(), id, sup, types.StateProcessing)
	require.NoError(t, err)
	assert.NoError(t, pdMock.ExpectationsWereMet())
}

func TestStreamClaimableSourceIdsBindsSupervisorAndLimit(t *testing.T) {
	repo, _, pdMock := newTestRepo(t)

	sup := uuid.New()
	rows := sqlmock.NewRows([]string{"source_id"}).AddRow(1).AddRow(1)
	pdMock.ExpectQuery(`SELECT dp.source_id`).
		WithArgs(sup[:], 10).
		WillReturnRows(rows)

	stream, err := repo.StreamClaimableSourceIds(context.Background(), sup, 10)
	require.NoError(t, err)
	defer stream.Close()

	var got []uint32
	for {
		id, ok, err := stream.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.Equal(t, []uint32{1, 1}, got, "duplicates are tolerated, not filtered by the repository")
}
