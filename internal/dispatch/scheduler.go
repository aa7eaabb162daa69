package dispatch

import (
	"context"
	"time"

	"github.com/7krasov/process-dispatcher/internal/metrics"
	"github.com/7krasov/process-dispatcher/internal/stopper"
	"github.com/7krasov/process-dispatcher/internal/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// berlin is the hard-coded calendar used for the same-day idempotence
// rule, per spec.md §6: "Hard-coded Europe/Berlin... Intentional, not
// configurable in the core."
var berlin = mustLoadLocation("Europe/Berlin")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(errors.Wrapf(err, "dispatch: loading %s timezone", name))
	}
	return loc
}

// relaunchDelay is how long the Scheduler waits after every tick,
// successful or not, before relaunching the outer loop, so an
// active-sources stream that drains immediately does not hot-spin.
// spec.md §9 leaves this as an open question and explicitly allows a
// small sleep "without violating any stated property".
const relaunchDelay = time.Second

// Scheduler iterates active source identifiers and, for each eligible
// source, inserts at most one new process per Europe/Berlin calendar
// day. It is the Go translation of dispatcher.rs's prepare_schedule.
type Scheduler struct {
	repo Repository
	km   KeyedMutex
	now  func() time.Time // overridable for tests
}

// NewScheduler constructs a Scheduler against repo and km.
func NewScheduler(repo Repository, km KeyedMutex) *Scheduler {
	return &Scheduler{repo: repo, km: km, now: time.Now}
}

// Run relaunches Tick forever until ctx's cancellation fires. Each
// relaunch is logged; non-cancellation errors are logged and the loop
// continues after the same fixed relaunchDelay as a successful tick:
// there is no retry counter and no growing backoff.
func (s *Scheduler) Run(ctx *stopper.Context) {
	for {
		select {
		case <-ctx.Stopping():
			return
		default:
		}

		err := s.Tick(ctx)
		switch {
		case errors.Is(err, types.ErrCancelled):
			return
		case err != nil:
			log.WithError(err).Error("scheduler: tick failed")
		default:
			log.Debug("scheduler: tick completed successfully")
		}

		if waitOrStop(ctx, relaunchDelay) {
			return
		}
	}
}

// waitOrStop sleeps for d or returns early (true) if ctx is cancelled
// first, so the pacing delay itself is a cancellable suspension point.
func waitOrStop(ctx *stopper.Context, d time.Duration) (cancelled bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Stopping():
		return true
	case <-timer.C:
		return false
	}
}

// Tick runs a single pass over the active-sources stream, inserting at
// most one new process per eligible source. It implements spec.md
// §4.4 steps 1-3 verbatim.
func (s *Scheduler) Tick(ctx *stopper.Context) error {
	start := time.Now()
	defer func() {
		metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())
		metrics.SchedulerTicks.Inc()
	}()

	log.Info("scheduler: preparing schedule")

	stream, err := stopper.WithCancellation(ctx, "scheduler.stream-open",
		func(c context.Context) (SourceIDStream, error) {
			return s.repo.StreamActiveSourceIds(c)
		})
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		item, err := stopper.WithCancellation(ctx, "scheduler.stream-next",
			func(context.Context) (sourceIDItem, error) {
				id, ok, err := stream.Next()
				return sourceIDItem{id: id, ok: ok}, err
			})
		if err != nil {
			return err
		}
		if !item.ok {
			return nil
		}

		if err := s.processSource(ctx, item.id); err != nil {
			return err
		}
	}
}

type sourceIDItem struct {
	id uint32
	ok bool
}

type latestProcessResult struct {
	row types.ProcessRow
	has bool
}

// processSource applies the per-source skip decision and, if
// eligible, inserts a new process. The keyed mutex serializes this
// against both other Scheduler ticks and the Assigner for the same
// source id.
func (s *Scheduler) processSource(ctx *stopper.Context, sourceID uint32) error {
	handle := s.km.Acquire(sourceID)
	handle.Lock()
	defer handle.Unlock()

	latest, err := stopper.WithCancellation(ctx, "scheduler.latest-process",
		func(c context.Context) (latestProcessResult, error) {
			row, has, err := s.repo.LatestProcess(c, sourceID)
			return latestProcessResult{row: row, has: has}, err
		})
	if err != nil {
		return err
	}

	if skip, reason := s.shouldSkip(latest); skip {
		log.WithFields(log.Fields{"source_id": sourceID, "reason": reason}).
			Trace("scheduler: skipping source")
		metrics.SchedulerSkips.WithLabelValues(reason).Inc()
		return nil
	}

	id, err := stopper.WithCancellation(ctx, "scheduler.insert-process",
		func(c context.Context) (uuid.UUID, error) {
			return s.repo.InsertProcess(c, sourceID, types.StateCreated, types.ModeRegular)
		})
	if err != nil {
		return err
	}

	metrics.SchedulerInserts.Inc()
	log.WithFields(log.Fields{"source_id": sourceID, "uuid": id}).
		Info("scheduler: a new regular process has been created")
	return nil
}

// shouldSkip implements the state machine in spec.md §4.4: skip if the
// latest process for this source is non-terminal, or if it is
// terminal but fell on today's Europe/Berlin calendar day.
func (s *Scheduler) shouldSkip(latest latestProcessResult) (skip bool, reason string) {
	if !latest.has {
		return false, ""
	}
	if !latest.row.State.IsTerminal() {
		return true, metrics.SkipReasonActive
	}
	if s.sameBerlinDay(latest.row.CreatedAt, s.now()) {
		return true, metrics.SkipReasonSameDay
	}
	return false, ""
}

// sameBerlinDay reports whether two UTC timestamps fall on the same
// Europe/Berlin calendar day. Comparisons never take a shortcut with
// naive UTC-string day arithmetic, per spec.md §9.
func (s *Scheduler) sameBerlinDay(createdAt, now time.Time) bool {
	a := createdAt.In(berlin)
	b := now.In(berlin)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
