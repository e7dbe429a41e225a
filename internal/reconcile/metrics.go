package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var matchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "standupd",
		Subsystem: "reconcile",
		Name:      "matches_total",
		Help:      "Title match attempts by result",
	},
	[]string{"result"},
)
