package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "standupd",
			Subsystem: "tracker",
			Name:      "requests_total",
			Help:      "GraphQL requests by operation and result",
		},
		[]string{"op", "result"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "standupd",
			Subsystem: "tracker",
			Name:      "request_duration_seconds",
			Help:      "GraphQL request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// writesTotal counts issue mutations. result is ok, rejected or error.
	writesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "standupd",
			Subsystem: "tracker",
			Name:      "writes_total",
			Help:      "Issue mutations by field and result",
		},
		[]string{"field", "result"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "standupd",
			Subsystem: "tracker",
			Name:      "retries_total",
			Help:      "GraphQL request retries by operation",
		},
		[]string{"op"},
	)
)
