// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recobot"

var (
	CatalogRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_requests_total",
		Help:      "Catalog fetches by status.",
	}, []string{"status"})

	CatalogDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "catalog_request_duration_seconds",
		Help:      "Catalog fetch latency.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	PoolSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pool_items",
		Help:      "Items in the candidate pool per recommendation run.",
		Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
	})

	Recommendations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendations_total",
		Help:      "Recommendation runs by origin (command, trigger) and outcome.",
	}, []string{"origin", "outcome"})

	Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Delivery attempts by endpoint and status.",
	}, []string{"endpoint", "status"})

	DispatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dispatch_duration_seconds",
		Help:      "Time from trigger fire to delivery.",
		Buckets:   prometheus.DefBuckets,
	})

	TriggersInstalled = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "triggers_installed",
		Help:      "Recurring triggers currently installed.",
	})

	Refreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "schedule_refresh_total",
		Help:      "Full trigger rebuilds.",
	})

	Tasks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_total",
		Help:      "Task engine executions by outcome.",
	}, []string{"outcome"})

	Commands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Chat commands by name and status.",
	}, []string{"command", "status"})
)

// MustRegister registers every collector with registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		CatalogRequests,
		CatalogDuration,
		PoolSize,
		Recommendations,
		Deliveries,
		DispatchDuration,
		TriggersInstalled,
		Refreshes,
		Tasks,
		Commands,
	)
}

// Since observes the elapsed seconds on h.
func Since(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
