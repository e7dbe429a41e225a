package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "standupd",
		Subsystem: "bus",
		Name:      "published_total",
		Help:      "Tasks published to the stream by result (ok, duplicate, error).",
	}, []string{"result"})

	handledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "standupd",
		Subsystem: "bus",
		Name:      "handled_total",
		Help:      "Tasks consumed by result (ok, retry, dropped, malformed).",
	}, []string{"result"})
)
