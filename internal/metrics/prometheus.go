// internal/metrics/prometheus.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hostsentry_cycles_total",
			Help: "Total number of monitor scheduler cycles executed",
		},
	)

	CycleErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostsentry_cycle_errors_total",
			Help: "Errors caught at the cycle boundary, by detector",
		},
		[]string{"detector"},
	)

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostsentry_events_total",
			Help: "Trigger and clear events emitted by detectors",
		},
		[]string{"type", "kind"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostsentry_notifications_total",
			Help: "Notification delivery outcomes after retries",
		},
		[]string{"type", "result"},
	)

	ActiveAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostsentry_active_alerts",
			Help: "Number of alerts currently present in the ledger",
		},
	)

	InternetConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostsentry_internet_connected",
			Help: "Connectivity detector state (1=up, 0=down)",
		},
	)

	TailBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hostsentry_tail_bytes_total",
			Help: "Bytes consumed from the monitored auth log",
		},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hostsentry_probe_duration_seconds",
			Help:    "Time spent probing connectivity endpoints",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordEvent counts one detector event.
func RecordEvent(alertType string, clear bool) {
	kind := "trigger"
	if clear {
		kind = "clear"
	}
	EventsTotal.WithLabelValues(alertType, kind).Inc()
}

// ObserveProbe records the duration of one connectivity probe pass.
func ObserveProbe(d time.Duration) {
	ProbeDuration.Observe(d.Seconds())
}
