// Package stopper provides the process-wide, one-shot fan-out
// cancellation primitive threaded through every awaiting operation in
// the dispatcher. It is the Go realization of the pattern consumed
// (but not itself defined) by cockroachdb/cdc-sink's
// internal/util/stdpool package, whose pool constructors call
// ctx.Go(...) and <-ctx.Stopping() against a *stopper.Context they are
// handed rather than a bare context.Context.
package stopper

import (
	"context"
	"sync"

	"github.com/7krasov/process-dispatcher/internal/types"
	log "github.com/sirupsen/logrus"
)

// Context pairs a context.Context with a one-shot "stopping" signal
// and a place to register background goroutines that should be
// allowed to drain before the process is considered shut down.
//
// The zero value is not usable; construct one with New.
type Context struct {
	context.Context

	once     sync.Once
	stopping chan struct{}
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

// New returns a Context derived from parent. Calling Stop transitions
// the returned Context's Stopping channel to closed and cancels the
// embedded context.Context, so any driver call bound to it unblocks
// too; it never resets.
func New(parent context.Context) *Context {
	inner, cancel := context.WithCancel(parent)
	return &Context{
		Context:  inner,
		stopping: make(chan struct{}),
		cancel:   cancel,
	}
}

// Stop is idempotent; the first call closes the Stopping channel,
// waking every goroutine that is ranging or selecting on it, and
// cancels the embedded context.Context. Repeated calls are no-ops.
func (c *Context) Stop() {
	c.once.Do(func() {
		close(c.stopping)
		c.cancel()
	})
}

// Stopping returns a channel that is closed once Stop has been called.
// Any number of goroutines may receive from it concurrently.
func (c *Context) Stopping() <-chan struct{} {
	return c.stopping
}

// Go runs fn in its own goroutine, tracked so that Wait can block
// until every registered goroutine has returned. fn is expected to
// select on Stopping() and return promptly once it fires.
func (c *Context) Go(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// Wait blocks until every goroutine started with Go has returned. It
// does not itself call Stop; callers typically do Stop() then Wait()
// for a clean drain.
func (c *Context) Wait() {
	c.wg.Wait()
}

// WithCancellation races op against the Context's cancellation signal.
// If the signal wins, it logs a single line naming label and returns
// types.ErrCancelled. Otherwise it returns op's own result. There is
// no guarantee about whether op's side effects had already begun when
// cancellation won the race.
func WithCancellation[T any](
	ctx *Context, label string, op func(context.Context) (T, error),
) (T, error) {
	type result struct {
		val T
		err error
	}

	resultCh := make(chan result, 1)
	go func() {
		val, err := op(ctx.Context)
		resultCh <- result{val, err}
	}()

	select {
	case <-ctx.Stopping():
		log.WithField("op", label).Info("stopper: cancellation observed, abandoning operation")
		var zero T
		return zero, types.ErrCancelled
	case r := <-resultCh:
		return r.val, r.err
	}
}

// WithCancellationErr is WithCancellation for operations that return
// only an error, with no value worth carrying.
func WithCancellationErr(ctx *Context, label string, op func(context.Context) error) error {
	_, err := WithCancellation(ctx, label, func(c context.Context) (struct{}, error) {
		return struct{}{}, op(c)
	})
	return err
}
