package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "upstream_request_duration_seconds",
	Help:    "Latency of calls to the rating and movie services",
	Buckets: prometheus.DefBuckets,
}, []string{"service", "status"})
