package types

import (
	"fmt"

	"github.com/pkg/errors"
)

// DbError wraps any failure surfaced by the repository layer,
// regardless of which of the two pools (mvp or pd) produced it. It
// carries the pool name so logs can tell the two apart without every
// call site having to annotate it by hand.
type DbError struct {
	Pool string
	Op   string
	err  error
}

// NewDbError wraps err with a stack trace captured at this call. It
// returns nil when err is nil.
func NewDbError(pool, op string, err error) *DbError {
	if err == nil {
		return nil
	}
	return &DbError{Pool: pool, Op: op, err: errors.WithStack(err)}
}

func (e *DbError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Pool, e.Op, e.err)
}

func (e *DbError) Unwrap() error { return e.err }

// ErrCancelled is returned by any stopper-wrapped operation once the
// cancellation latch has fired before the operation itself completed.
// This is the Go name for spec's TerminatingSignalReceived.
var ErrCancelled = errors.New("process-dispatcher: terminating signal received")
