package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recommendationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommendation_requests_total",
		Help: "Recommendation workflow runs by endpoint kind and outcome",
	}, []string{"kind", "outcome"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommendation_cache_lookups_total",
		Help: "Recommendation cache lookups by endpoint kind and result",
	}, []string{"kind", "result"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recommendation_generation_duration_seconds",
		Help:    "Time spent producing a recommendation list, cache hits included",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)
