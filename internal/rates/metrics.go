package rates

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// SourceFetchDurationSeconds tracks per-source fetch latency.
	SourceFetchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webmon_rates_source_fetch_duration_seconds",
		Help:    "Duration of funding-rate fetches per source",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	// SourceErrorsTotal tracks per-source fetch failures.
	SourceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webmon_rates_source_errors_total",
		Help: "Total number of funding-rate fetch failures per source",
	}, []string{"source"})

	// SourceRates tracks the rows returned by the last fetch per source.
	SourceRates = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "webmon_rates_source_rates",
		Help: "Number of funding-rate entries returned by the last fetch per source",
	}, []string{"source"})
)
