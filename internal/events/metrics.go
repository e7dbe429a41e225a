package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "standupd",
	Subsystem: "events",
	Name:      "received_total",
	Help:      "Chat events received by type.",
}, []string{"type"})
