// Package workflows provides the Temporal workflows that run standupd's
// scheduled jobs: transcript ingestion and the metrics snapshot.
package workflows

import (
	"time"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// Task queue and workflow IDs used when no configuration overrides them.
const (
	DefaultTaskQueue    = "standup-ingestion"
	IngestionWorkflowID = "standupd-transcript-ingestion"
	SnapshotWorkflowID  = "standupd-metrics-snapshot"
)

// IngestionConfig configures TranscriptIngestionWorkflow.
type IngestionConfig struct {
	// MaxDocuments caps the documents handled in one run; 0 means no cap.
	MaxDocuments int
}

// IngestionResult summarises one ingestion run.
type IngestionResult struct {
	Documents int      // Documents found in the folder
	Processed int      // Documents whose tasks were published
	Skipped   int      // Documents without transcript text
	Tasks     int      // Tasks published
	Archived  int      // Documents moved to the processed folder
	Errors    []string // Per-document failures

	// Unarchived lists documents whose tasks were published but which are
	// still in the folder. The next scheduled run archives them without
	// extracting again.
	Unarchived []string
}

// ExtractTranscriptResult is returned by ExtractTranscriptActivity. The
// records are kept in workflow history so publishing never re-runs the model.
type ExtractTranscriptResult struct {
	HasTranscript bool
	Records       []standup.Record
}

// SnapshotResult is the metric written by MetricsSnapshotWorkflow.
type SnapshotResult struct {
	Time        time.Time
	PercentDone float64
}
