package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fyrsmithlabs/standupd/internal/transcripts"
)

// TranscriptIngestionWorkflow publishes the tasks in every transcript
// waiting in the Drive folder and archives each one it handled.
//
// A document whose extraction or publish fails stays in the folder and is
// retried on the next run. A document whose archive fails is listed in
// IngestionResult.Unarchived; a scheduled run reads the previous run's
// result and only archives those documents.
func TranscriptIngestionWorkflow(ctx workflow.Context, cfg IngestionConfig) (*IngestionResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting transcript ingestion")

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	})

	var a *Activities
	result := &IngestionResult{}
	published := previouslyPublished(ctx)

	var docs []transcripts.Doc
	if err := workflow.ExecuteActivity(ctx, a.ListTranscriptsActivity).Get(ctx, &docs); err != nil {
		werr := NewWorkflowError("list_transcripts", ErrorSeverityCritical, err, "")
		result.Errors = append(result.Errors, werr.Error())
		return result, werr
	}
	result.Documents = len(docs)
	if cfg.MaxDocuments > 0 && len(docs) > cfg.MaxDocuments {
		// Documents still waiting for an archive are carried to the next run.
		for _, doc := range docs[cfg.MaxDocuments:] {
			if published[doc.ID] {
				result.Unarchived = append(result.Unarchived, doc.ID)
			}
		}
		docs = docs[:cfg.MaxDocuments]
	}

	for _, doc := range docs {
		if !published[doc.ID] {
			var extracted ExtractTranscriptResult
			if err := workflow.ExecuteActivity(ctx, a.ExtractTranscriptActivity, doc).Get(ctx, &extracted); err != nil {
				werr := NewWorkflowError("extract_transcript", ErrorSeverityHigh, err, doc.Name)
				logger.Error("Transcript extraction failed", "doc", doc.Name, "error", err)
				result.Errors = append(result.Errors, werr.Error())
				continue
			}
			if !extracted.HasTranscript {
				result.Skipped++
				continue
			}
			if err := workflow.ExecuteActivity(ctx, a.PublishTranscriptTasksActivity, doc, extracted.Records).Get(ctx, nil); err != nil {
				werr := NewWorkflowError("publish_tasks", ErrorSeverityHigh, err, doc.Name)
				logger.Error("Publishing transcript tasks failed", "doc", doc.Name, "error", err)
				result.Errors = append(result.Errors, werr.Error())
				continue
			}
			result.Processed++
			result.Tasks += len(extracted.Records)
		} else {
			logger.Info("Archiving transcript published by an earlier run", "doc", doc.Name)
		}

		if err := workflow.ExecuteActivity(ctx, a.ArchiveTranscriptActivity, doc.ID).Get(ctx, nil); err != nil {
			werr := NewWorkflowError("archive_transcript", ErrorSeverityHigh, err, doc.Name)
			logger.Warn("Failed to archive transcript", "doc", doc.Name, "error", err)
			result.Errors = append(result.Errors, werr.Error())
			result.Unarchived = append(result.Unarchived, doc.ID)
			continue
		}
		result.Archived++
	}

	logger.Info("Transcript ingestion complete",
		"documents", result.Documents,
		"processed", result.Processed,
		"tasks", result.Tasks,
		"unarchived", len(result.Unarchived),
		"errors", len(result.Errors))
	return result, nil
}

// previouslyPublished returns the documents the last completed scheduled run
// published but could not archive.
func previouslyPublished(ctx workflow.Context) map[string]bool {
	published := make(map[string]bool)
	if !workflow.HasLastCompletionResult(ctx) {
		return published
	}
	var prev IngestionResult
	if err := workflow.GetLastCompletionResult(ctx, &prev); err != nil {
		workflow.GetLogger(ctx).Warn("Ignoring unreadable previous ingestion result", "error", err)
		return published
	}
	for _, id := range prev.Unarchived {
		published[id] = true
	}
	return published
}
