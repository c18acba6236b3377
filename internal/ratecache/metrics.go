package ratecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RefreshesTotal tracks successful snapshot publishes.
	RefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_ratecache_refreshes_total",
		Help: "Total number of successful funding-rate cache refreshes",
	})

	// RefreshErrorsTotal tracks failed upstream fetches.
	RefreshErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_ratecache_refresh_errors_total",
		Help: "Total number of failed funding-rate fetches",
	})

	// RefreshWaitersTotal tracks callers coalesced onto an in-flight fetch.
	RefreshWaitersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_ratecache_refresh_waiters_total",
		Help: "Total number of refresh requests coalesced onto an in-flight fetch",
	})

	// RefreshDurationSeconds tracks upstream fetch latency.
	RefreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "webmon_ratecache_refresh_duration_seconds",
		Help:    "Duration of funding-rate fetches",
		Buckets: prometheus.DefBuckets,
	})

	// SnapshotTimestamp exposes the publish time of the current snapshot.
	SnapshotTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webmon_ratecache_snapshot_timestamp_seconds",
		Help: "Unix timestamp of the last published funding-rate snapshot",
	})

	// SnapshotRates exposes the row count of the current snapshot.
	SnapshotRates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webmon_ratecache_snapshot_rates",
		Help: "Number of funding-rate entries in the current snapshot",
	})

	// WarmerTicksTotal tracks scheduled warmer refresh attempts.
	WarmerTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_warmer_ticks_total",
		Help: "Total number of scheduled cache warmer ticks",
	})

	// WarmerTickErrorsTotal tracks warmer ticks whose fetch failed.
	WarmerTickErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_warmer_tick_errors_total",
		Help: "Total number of cache warmer ticks that failed to refresh",
	})

	// WarmerRestartsTotal tracks supervisor restarts of the warmer loop.
	WarmerRestartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_warmer_restarts_total",
		Help: "Total number of times the warmer loop was restarted after an unexpected exit",
	})
)
