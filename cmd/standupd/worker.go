package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/extraction"
	"github.com/fyrsmithlabs/standupd/internal/secrets"
	"github.com/fyrsmithlabs/standupd/internal/tracker"
	"github.com/fyrsmithlabs/standupd/internal/transcripts"
	"github.com/fyrsmithlabs/standupd/internal/workflows"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker for transcript ingestion and metrics snapshots",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg
	logger := a.logger

	taskBus, err := a.taskBus(ctx)
	if err != nil {
		return err
	}
	completer, err := a.completer(ctx)
	if err != nil {
		return err
	}
	dir, err := a.directory(ctx)
	if err != nil {
		return err
	}
	trk, err := tracker.New(cfg.Tracker, logger)
	if err != nil {
		return err
	}
	src, err := transcripts.New(ctx, cfg.Transcripts, logger)
	if err != nil {
		return err
	}

	acts := &workflows.Activities{
		Source:    src,
		Extractor: extraction.New(completer, secrets.WithGitleaks(secrets.New()), logger),
		Roster:    dir,
		Publisher: taskBus,
		Issues:    trk,
		Logger:    logger,
	}
	if wh := a.warehouse(ctx); wh != nil {
		acts.Metrics = wh
	}

	c, err := a.temporal()
	if err != nil {
		return err
	}
	logger.Info(ctx, "temporal client connected", zap.String("host", cfg.Temporal.HostPort))

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	workflows.Register(w, acts)
	logger.Info(ctx, "worker configured", zap.String("task_queue", cfg.Temporal.TaskQueue))

	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- w.Run(worker.InterruptCh())
	}()

	select {
	case err := <-workerErrors:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
	case <-ctx.Done():
		w.Stop()
	}
	logger.Info(ctx, "worker stopped")
	return nil
}
