package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace prefixes every metric (verdandi_...).
const namespace = "verdandi"

// evalBuckets gives sub-millisecond resolution for the evaluation path,
// which completes in microseconds when no Redis round-trip is involved.
var evalBuckets = []float64{.00001, .00005, .0001, .0005, .001, .002, .005, .010, .025, .050, .100}

var (
	// -------------------------------------------------------------------------
	// EVALUATION ENGINE
	// -------------------------------------------------------------------------

	// EvaluationsTotal counts evaluations by terminal reason
	// (NOT_FOUND, DISABLED, ROLLOUT_EXCLUDED, TARGETING_FAILED, ENABLED).
	// Flag keys are deliberately not a label: unbounded cardinality.
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "evaluations_total",
		Help:      "Total flag evaluations by terminal reason",
	}, []string{"reason"})

	// EvaluationDuration measures end-to-end evaluation latency.
	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "evaluation_duration_seconds",
		Help:      "Time taken to evaluate a flag",
		Buckets:   evalBuckets,
	})

	// AssignmentCacheHits counts sticky variant assignments served from the
	// assignment store.
	AssignmentCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "assignment_cache_hits_total",
		Help:      "Total sticky assignment cache hits",
	})

	// AssignmentCacheMisses counts first-time (or evicted) assignments that
	// had to be recomputed.
	AssignmentCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "assignment_cache_misses_total",
		Help:      "Total sticky assignment cache misses",
	})

	// -------------------------------------------------------------------------
	// FLAG REGISTRY
	// -------------------------------------------------------------------------

	// RegistryFlags tracks the number of flag definitions currently held.
	RegistryFlags = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "flags_count",
		Help:      "Current number of flags in the registry",
	})

	// -------------------------------------------------------------------------
	// CONTROL PLANE (HTTP)
	// -------------------------------------------------------------------------

	// ControlPlaneReqDuration measures admin/eval HTTP handler latency.
	ControlPlaneReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// ControlPlaneReqTotal counts HTTP requests by status code.
	ControlPlaneReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "path", "code"})

	// -------------------------------------------------------------------------
	// SYNCER
	// -------------------------------------------------------------------------

	// SyncerCycleDuration measures a full Postgres-to-registry hydration.
	SyncerCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "cycle_duration_seconds",
		Help:      "Time taken to hydrate the registry from the store",
		Buckets:   prometheus.DefBuckets,
	})

	// SyncerCyclesTotal counts sync cycles by outcome.
	SyncerCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "cycles_total",
		Help:      "Total registry hydration cycles",
	}, []string{"status"}) // success, fail
)
