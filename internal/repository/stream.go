package repository

import (
	"database/sql"

	"github.com/7krasov/process-dispatcher/internal/types"
)

// SourceIDStream is a lazy cursor over a *sql.Rows of source ids.
// Backpressure is by the consumer calling Next; the underlying rows
// are not buffered beyond what the driver itself buffers.
type SourceIDStream struct {
	rows *sql.Rows
	pool string
	op   string
}

// Next pulls the next source id. ok is false once the stream is
// exhausted, at which point err is always nil; a non-nil err means
// the stream failed mid-read and is no longer usable.
func (s *SourceIDStream) Next() (id uint32, ok bool, err error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return 0, false, types.NewDbError(s.pool, s.op, err)
		}
		return 0, false, nil
	}
	if err := s.rows.Scan(&id); err != nil {
		return 0, false, types.NewDbError(s.pool, s.op, err)
	}
	return id, true, nil
}

// Close releases the underlying rows. Safe to call after exhaustion.
func (s *SourceIDStream) Close() error { return s.rows.Close() }

// ProcessStream is a lazy cursor over a *sql.Rows of ProcessRow.
type ProcessStream struct {
	rows *sql.Rows
	pool string
	op   string
}

// Next pulls the next process row; see SourceIDStream.Next for the
// ok/err contract.
func (s *ProcessStream) Next() (row types.ProcessRow, ok bool, err error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return types.ProcessRow{}, false, types.NewDbError(s.pool, s.op, err)
		}
		return types.ProcessRow{}, false, nil
	}
	row, err = scanProcessRow(s.rows.Scan)
	if err != nil {
		return types.ProcessRow{}, false, types.NewDbError(s.pool, s.op, err)
	}
	return row, true, nil
}

// Close releases the underlying rows. Safe to call after exhaustion.
func (s *ProcessStream) Close() error { return s.rows.Close() }
