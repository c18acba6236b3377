package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	ChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_alerting_checks_total",
		Help: "Total number of alert evaluation passes",
	})

	CheckErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_alerting_check_errors_total",
		Help: "Total number of failed alert evaluation passes",
	})

	AlertsTriggeredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webmon_alerting_alerts_triggered_total",
		Help: "Total number of alerts triggered",
	}, []string{"level"})

	AlertsResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_alerting_alerts_resolved_total",
		Help: "Total number of alerts resolved",
	})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webmon_alerting_notifications_sent_total",
		Help: "Total number of notifications delivered",
	}, []string{"level"})

	NotificationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webmon_alerting_notification_errors_total",
		Help: "Total number of failed notification deliveries",
	})
)
