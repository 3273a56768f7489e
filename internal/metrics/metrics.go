// Package metrics exposes Prometheus counters and histograms for the log
// engine and executor: appends, flushes, fsyncs, scan rows visited, and
// plan-cache hit/miss. Registration happens once at package init; callers
// expose them through whatever registry endpoint the embedding program
// already serves.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AppendsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tegdb_log_appends_total",
		Help: "Total number of entries appended to the log file.",
	})

	FlushesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tegdb_log_flushes_total",
		Help: "Total number of explicit flush() calls against the log file.",
	})

	FsyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tegdb_log_fsync_duration_seconds",
		Help:    "Latency of fsync calls issued during flush().",
		Buckets: prometheus.DefBuckets,
	})

	ScanRowsVisited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tegdb_executor_scan_rows_visited_total",
		Help: "Total number of rows visited by TableScan/IndexScan/VectorTopK iterators, including rows rejected by a filter.",
	})

	PlanCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tegdb_plancache_hits_total",
		Help: "Total number of plan cache lookups that reused a cached plan.",
	})

	PlanCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tegdb_plancache_misses_total",
		Help: "Total number of plan cache lookups that required planning from scratch.",
	})

	RecoveryRollbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tegdb_recovery_rollbacks_total",
		Help: "Total number of log entries discarded by crash-recovery rollback across all opens.",
	})
)

func init() {
	prometheus.MustRegister(
		AppendsTotal,
		FlushesTotal,
		FsyncDuration,
		ScanRowsVisited,
		PlanCacheHits,
		PlanCacheMisses,
		RecoveryRollbacksTotal,
	)
}
