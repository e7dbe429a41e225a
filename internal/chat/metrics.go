package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var apiCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "standupd",
		Subsystem: "chat",
		Name:      "api_calls_total",
		Help:      "Slack Web API calls by method and result",
	},
	[]string{"method", "result"},
)
