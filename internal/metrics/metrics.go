package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HttpRequestsTotal counts HTTP requests by route pattern, method and code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)

	// ClaimsTotal counts claim attempts: won, conflict, error.
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_claims_total",
			Help: "Claim attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// ReleasesTotal counts release attempts: released, not_authorized, not_claimed, error.
	ReleasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_releases_total",
			Help: "Release attempts by outcome.",
		},
		[]string{"outcome"},
	)

	InboundEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_inbound_events_total",
			Help: "Inbound gateway events by kind.",
		},
		[]string{"kind"},
	)

	GatewayErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_gateway_errors_total",
			Help: "Failed messaging gateway calls by method.",
		},
		[]string{"method"},
	)

	// Orders is refreshed periodically by the stats job.
	Orders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_orders",
			Help: "Orders currently in each status.",
		},
		[]string{"status"},
	)
)
