package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	EventsStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_ingest_events_stored_total",
		Help: "Total number of monitoring events persisted",
	})

	EventsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_ingest_events_failed_total",
		Help: "Total number of monitoring events that failed to persist",
	})

	WebhooksRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webmon_ingest_webhooks_rejected_total",
		Help: "Total number of rejected webhook requests",
	}, []string{"reason"})
)
