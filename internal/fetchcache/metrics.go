// Package fetchcache – Prometheus instrumentation.
//
// Counter cardinality is bounded: hits/misses are labeled by platform only
// (subject identifiers would be unbounded), refreshes by outcome.
package fetchcache

import "github.com/prometheus/client_golang/prometheus"

var (
	// cacheReads counts cache lookups by platform and outcome (hit/miss/stale).
	cacheReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchcache_reads_total",
			Help: "Total cached-fetch reads by outcome.",
		},
		[]string{"platform", "outcome"},
	)

	// cacheRefreshes counts background refresh completions by result.
	cacheRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchcache_refreshes_total",
			Help: "Total background cache refreshes by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(cacheReads, cacheRefreshes)
}
