package extraction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// recordsTotal counts extraction outcomes.
// Labels: source (message, transcript), result (accepted, quarantined, unparseable, llm_error)
var recordsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "standupd",
		Subsystem: "extraction",
		Name:      "records_total",
		Help:      "Extracted task records by source and result",
	},
	[]string{"source", "result"},
)
