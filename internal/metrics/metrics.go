// Package metrics collects the Prometheus instrumentation for the
// dispatcher, following the same promauto vector style as
// internal/staging/stage/metrics.go in the teacher repository.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// latencyBuckets mirrors the teacher's metrics.LatencyBuckets: a
// general-purpose bucket set for sub-second-to-several-second
// operations, which is the range every dispatcher DB call and HTTP
// request falls into.
var latencyBuckets = []float64{
	.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

var (
	// SchedulerTicks counts completed scheduler relaunch iterations.
	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_scheduler_ticks_total",
		Help: "the number of completed scheduler relaunch iterations",
	})

	// SchedulerTickDuration times a full scheduler tick.
	SchedulerTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatcher_scheduler_tick_duration_seconds",
		Help:    "the length of time a single scheduler tick took",
		Buckets: latencyBuckets,
	})

	// SchedulerInserts counts new processes created by the scheduler.
	SchedulerInserts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatcher_scheduler_inserts_total",
		Help: "the number of processes inserted by the scheduler",
	})

	// SchedulerSkips counts sources the scheduler declined to insert
	// for, labeled by the reason.
	SchedulerSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_scheduler_skips_total",
		Help: "the number of sources the scheduler skipped, by reason",
	}, []string{"reason"})

	// AssignerClaims counts assign_process outcomes, labeled by
	// outcome: assigned, empty, or error.
	AssignerClaims = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_assigner_claims_total",
		Help: "the number of assign_process outcomes, by outcome",
	}, []string{"outcome"})

	// AssignerClaimDuration times a full AssignProcess call.
	AssignerClaimDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatcher_assigner_claim_duration_seconds",
		Help:    "the length of time a single AssignProcess call took",
		Buckets: latencyBuckets,
	})

	// KeyedMutexKeys reports the number of keys currently tracked by
	// the keyed mutex, sampled each cleanup cycle.
	KeyedMutexKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatcher_keyedmutex_keys",
		Help: "the number of keys currently tracked by the keyed mutex",
	})
)

// Skip reason labels used with SchedulerSkips.
const (
	SkipReasonActive  = "active"
	SkipReasonSameDay = "same_day"
)

// Assigner outcome labels used with AssignerClaims.
const (
	OutcomeAssigned = "assigned"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
)
