package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var questionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "standupd",
		Subsystem: "query",
		Name:      "questions_total",
		Help:      "Questions answered by intent and status",
	},
	[]string{"intent", "status"},
)
