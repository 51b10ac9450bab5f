package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeGenerated     = "generated"
	OutcomeFallbackError = "fallback_error"
	OutcomeFallbackEmpty = "fallback_empty"
)

var (
	relayOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_outcomes_total",
			Help: "Total number of relay results by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	normalizerCutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_normalizer_cuts_total",
			Help: "Total number of normalized candidates by mode and cut strategy",
		},
		[]string{"mode", "cut"},
	)

	relayCoalescedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_coalesced_requests_total",
			Help: "Total number of requests that shared an in-flight generation call",
		},
		[]string{"mode"},
	)
)
