package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// TransfersTotal counts finished flows by outcome
	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridge",
			Name:      "transfers_total",
			Help:      "Total number of bridge flows by flow and resulting status.",
		},
		[]string{"flow", "status"},
	)

	// LegDuration tracks how long each remote leg takes
	LegDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bridge",
			Name:      "leg_duration_seconds",
			Help:      "Latency of crypto and fiat legs.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"leg", "outcome"},
	)

	// HTTPRequestsTotal counts API requests by route and status code
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridge",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "code"},
	)
)

func MustRegister() {
	prometheus.MustRegister(TransfersTotal, LegDuration, HTTPRequestsTotal)
}
