package cities

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityinfos_upstream_requests_total",
			Help: "Total number of requests sent to the cities provider",
		},
		[]string{"endpoint", "outcome"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cityinfos_upstream_request_duration_seconds",
			Help:    "Cities provider request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityinfos_cache_lookups_total",
			Help: "Upstream snapshot cache lookups by result",
		},
		[]string{"result"},
	)
)
