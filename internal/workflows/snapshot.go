package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fyrsmithlabs/standupd/internal/warehouse"
)

// MetricsSnapshotWorkflow appends the current percent-done figure to the
// warehouse metrics table.
func MetricsSnapshotWorkflow(ctx workflow.Context) (*SnapshotResult, error) {
	logger := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var a *Activities
	result := &SnapshotResult{Time: workflow.Now(ctx).UTC()}

	if err := workflow.ExecuteActivity(ctx, a.PercentDoneActivity).Get(ctx, &result.PercentDone); err != nil {
		return nil, NewWorkflowError("percent_done", ErrorSeverityCritical, err, "")
	}

	row := warehouse.MetricRow{
		Time:        result.Time,
		MetricName:  warehouse.MetricPercentDone,
		MetricValue: result.PercentDone,
	}
	if err := workflow.ExecuteActivity(ctx, a.AppendMetricActivity, row).Get(ctx, nil); err != nil {
		return nil, NewWorkflowError("append_metric", ErrorSeverityCritical, err, warehouse.MetricPercentDone)
	}

	logger.Info("Metrics snapshot written", "percent_done", result.PercentDone)
	return result, nil
}
