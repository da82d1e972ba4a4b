// Package queue – Prometheus instrumentation for the offline queue.
package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	// queueDepth gauges the number of durably queued operations, including
	// frozen ones awaiting manual intervention.
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_queue_depth",
			Help: "Current number of durably queued operations.",
		},
	)

	// replayAttempts counts replay attempts by operation kind and result
	// (ok, error, frozen).
	replayAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_replay_attempts_total",
			Help: "Total queue replay attempts by kind and result.",
		},
		[]string{"kind", "result"},
	)

	// syncPasses counts full drain passes by result.
	syncPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_passes_total",
			Help: "Total queue drain passes by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(queueDepth, replayAttempts, syncPasses)
}
