package approval

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName is the name used for OTEL instrumentation.
const InstrumentationName = "github.com/fyrsmithlabs/standupd/internal/approval"

// Metrics holds the workflow instruments.
type Metrics struct {
	proposals    metric.Int64Counter
	reactions    metric.Int64Counter
	trackerWrite metric.Int64Counter
	live         metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on meter, or on the global provider when
// meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}
	m := &Metrics{}
	var err error

	m.proposals, err = meter.Int64Counter(
		"approval.proposals.total",
		metric.WithDescription("Proposals by kind and outcome"),
		metric.WithUnit("{proposal}"),
	)
	if err != nil {
		return nil, err
	}

	m.reactions, err = meter.Int64Counter(
		"approval.reactions.total",
		metric.WithDescription("Reactions handled by outcome"),
		metric.WithUnit("{reaction}"),
	)
	if err != nil {
		return nil, err
	}

	m.trackerWrite, err = meter.Int64Counter(
		"approval.tracker_writes.total",
		metric.WithDescription("Tracker status writes issued after approval"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	// Counts requests opened and closed by this process only.
	m.live, err = meter.Int64UpDownCounter(
		"approval.requests.live",
		metric.WithDescription("Approval requests opened minus closed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) recordProposal(ctx context.Context, kind string, outcome Outcome) {
	m.proposals.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", string(outcome)),
	))
	if outcome == OutcomePosted {
		m.live.Add(ctx, 1)
	}
}

func (m *Metrics) recordReaction(ctx context.Context, outcome Outcome) {
	m.reactions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
	switch outcome {
	case OutcomeApproved, OutcomeDismissed, OutcomeRejected:
		m.live.Add(ctx, -1)
	}
}

func (m *Metrics) recordWrite(ctx context.Context, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.trackerWrite.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
