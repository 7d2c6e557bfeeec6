// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus counters of the engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snowball",
			Name:      "api_requests_total",
			Help:      "Scholarly-graph API requests by backend, operation and outcome",
		},
		[]string{"backend", "operation", "outcome"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snowball",
			Name:      "cache_lookups_total",
			Help:      "Expansion cache lookups per identifier",
		},
		[]string{"result"}, // "hit" / "miss" / "stale"
	)

	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snowball",
			Name:      "status_transitions_total",
			Help:      "Query status transitions",
		},
		[]string{"from", "to"},
	)
)

var registered bool

// Register registers the counters with the default registry. Must be called
// once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(APIRequests)
	prometheus.MustRegister(CacheLookups)
	prometheus.MustRegister(StatusTransitions)
	registered = true
}
