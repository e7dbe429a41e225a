package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts completions. Labels: provider, result (success, error, empty, throttled)
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "standupd",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total number of LLM completion requests",
		},
		[]string{"provider", "result"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "standupd",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Duration of LLM completion requests in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)
)
