package workflows

import (
	"go.temporal.io/sdk/worker"
)

// Register adds the standupd workflows and activities to w.
func Register(w worker.Registry, a *Activities) {
	w.RegisterWorkflow(TranscriptIngestionWorkflow)
	w.RegisterWorkflow(MetricsSnapshotWorkflow)
	w.RegisterActivity(a)
}
