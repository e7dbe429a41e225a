package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/approval"
	"github.com/fyrsmithlabs/standupd/internal/chat"
	"github.com/fyrsmithlabs/standupd/internal/events"
	"github.com/fyrsmithlabs/standupd/internal/extraction"
	apihttp "github.com/fyrsmithlabs/standupd/internal/http"
	"github.com/fyrsmithlabs/standupd/internal/llm"
	"github.com/fyrsmithlabs/standupd/internal/query"
	"github.com/fyrsmithlabs/standupd/internal/reconcile"
	"github.com/fyrsmithlabs/standupd/internal/secrets"
	"github.com/fyrsmithlabs/standupd/internal/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve Slack events and reconcile published tasks",
	Long: `Serve receives Slack events on /slack/events, extracts tasks from channel
messages, answers direct messages and runs the reaction approval loop. The
same process consumes the task stream and proposes tracker updates.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
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
	store, err := a.store(ctx)
	if err != nil {
		return err
	}
	chatClient, err := chat.New(cfg.Slack, logger)
	if err != nil {
		return err
	}
	trk, err := tracker.New(cfg.Tracker, logger)
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

	approver, err := approval.New(store, chatClient, trk, dir, approval.Options{
		TeamChannel: cfg.Slack.TeamChannel,
		Logger:      logger,
		Telemetry:   a.telemetry,
	})
	if err != nil {
		return err
	}
	reconciler := reconcile.New(completer, logger)

	dispatcher := events.New(events.Deps{
		Chat:       chatClient,
		Extractor:  extraction.New(completer, secrets.WithGitleaks(secrets.New()), logger),
		Publisher:  taskBus,
		Approver:   approver,
		Answerer:   newAnswerer(ctx, a, completer, trk, reconciler),
		Issues:     trk,
		Reconciler: reconciler,
	}, cfg.Slack.BotUserID, logger)

	srv, err := apihttp.NewServer(cfg.Server, cfg.Slack.SigningSecret, dispatcher, logger, a.telemetry)
	if err != nil {
		return err
	}

	errs := make(chan error, 2)
	go func() {
		if err := taskBus.Consume(ctx, dispatcher.HandleTask); err != nil {
			errs <- fmt.Errorf("task consumer: %w", err)
		}
	}()
	go func() {
		if err := srv.Start(); err != nil {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	case err = <-errs:
		logger.Error(ctx, "service failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn(shutdownCtx, "http shutdown", zap.Error(serr))
	}
	return err
}

// newAnswerer builds the query path. Without a warehouse, metrics questions
// are answered with an error.
func newAnswerer(ctx context.Context, a *app, completer llm.Completer, trk *tracker.Client, matcher query.Matcher) *query.Answerer {
	return query.New(completer, trk, matcher, a.warehouse(ctx), query.Options{
		Dataset:      a.cfg.Warehouse.Dataset,
		MetricsTable: a.cfg.Warehouse.MetricsTable,
		Logger:       a.logger,
	})
}
