package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/workflows"
)

var (
	ingestSchedule   bool
	ingestMaxDocs    int
	snapshotSchedule string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run transcript ingestion on the Temporal worker",
	Long: `Ingest starts TranscriptIngestionWorkflow and waits for its summary.

With --schedule the workflow is registered as a cron job using
transcripts.schedule from the config and the command returns immediately.`,
	RunE: runIngest,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Append the current percent-done metric to the warehouse",
	RunE:  runSnapshot,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestSchedule, "schedule", false, "register the configured cron schedule instead of running once")
	ingestCmd.Flags().IntVar(&ingestMaxDocs, "max-docs", 0, "maximum documents per run (0 = all)")
	snapshotCmd.Flags().StringVar(&snapshotSchedule, "cron", "", "cron schedule to register instead of running once")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	opts := client.StartWorkflowOptions{
		ID:        workflows.IngestionWorkflowID,
		TaskQueue: a.cfg.Temporal.TaskQueue,
	}
	if ingestSchedule {
		if a.cfg.Transcripts.Schedule == "" {
			return fmt.Errorf("transcripts.schedule is not configured")
		}
		opts.CronSchedule = a.cfg.Transcripts.Schedule
	}

	var result workflows.IngestionResult
	done, err := startWorkflow(ctx, a, opts, workflows.TranscriptIngestionWorkflow, &result, workflows.IngestionConfig{MaxDocuments: ingestMaxDocs})
	if err != nil || !done {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "documents: %d  processed: %d  skipped: %d  tasks: %d  archived: %d\n",
		result.Documents, result.Processed, result.Skipped, result.Tasks, result.Archived)
	for _, e := range result.Errors {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", e)
	}
	return nil
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	opts := client.StartWorkflowOptions{
		ID:           workflows.SnapshotWorkflowID,
		TaskQueue:    a.cfg.Temporal.TaskQueue,
		CronSchedule: snapshotSchedule,
	}
	var result workflows.SnapshotResult
	done, err := startWorkflow(ctx, a, opts, workflows.MetricsSnapshotWorkflow, &result)
	if err != nil || !done {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "percent done: %.1f%% at %s\n", result.PercentDone*100, result.Time.Format(time.RFC3339))
	return nil
}

// startWorkflow starts wf. Cron workflows are left running and done is false;
// otherwise it waits for the run and decodes its result into out.
func startWorkflow(ctx context.Context, a *app, opts client.StartWorkflowOptions, wf interface{}, out interface{}, args ...interface{}) (done bool, err error) {
	c, err := a.temporal()
	if err != nil {
		return false, err
	}

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	run, err := c.ExecuteWorkflow(startCtx, opts, wf, args...)
	if err != nil {
		return false, fmt.Errorf("failed to start workflow: %w", err)
	}
	a.logger.Info(ctx, "workflow started",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
		zap.String("cron", opts.CronSchedule))

	if opts.CronSchedule != "" {
		return false, nil
	}
	if err := run.Get(ctx, out); err != nil {
		return false, fmt.Errorf("workflow %s failed: %w", run.GetID(), err)
	}
	return true, nil
}
