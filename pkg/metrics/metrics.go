// Package metrics holds the prometheus collectors shared by the store, the
// GraphQL adapter and the live worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeApplied    = "applied"
	OutcomeSuppressed = "suppressed"
)

var (
	// RemoteRequests counts GraphQL requests by operation and outcome.
	RemoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_remote_requests_total",
		Help: "Total remote note service requests by operation and outcome",
	}, []string{"operation", "outcome"})

	// Mutations counts fire-and-forget mutations dispatched by the store.
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_mutations_total",
		Help: "Total optimistic mutations pushed to the remote by operation and outcome",
	}, []string{"operation", "outcome"})

	// LiveEvents counts subscription deliveries by outcome.
	LiveEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_live_events_total",
		Help: "Total live note creations received by outcome",
	}, []string{"outcome"})

	// InFlight tracks mutations that have not completed yet.
	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quill_mutations_in_flight",
		Help: "Mutations dispatched to the remote and not yet completed",
	})
)
