package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/log/global"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/fyrsmithlabs/standupd/internal/bus"
	"github.com/fyrsmithlabs/standupd/internal/config"
	"github.com/fyrsmithlabs/standupd/internal/directory"
	"github.com/fyrsmithlabs/standupd/internal/llm"
	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/pending"
	"github.com/fyrsmithlabs/standupd/internal/telemetry"
	"github.com/fyrsmithlabs/standupd/internal/warehouse"
	"github.com/fyrsmithlabs/standupd/internal/workflows"
)

// app holds the shared infrastructure of one command invocation.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry

	conn    *bus.Conn
	closers []func() error
}

// newApp loads configuration and starts logging and telemetry.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logCfg, err := logging.FromObservability(cfg.Observability)
	if err != nil {
		return nil, err
	}
	logCfg.Output.Stderr = logsToStderr
	logger, err := logging.NewLogger(logCfg, global.GetLoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	if degraded, derr := tel.Degraded(); degraded {
		logger.Warn(ctx, "telemetry degraded, exporting disabled", zap.Error(derr))
	}

	a := &app{cfg: cfg, logger: logger, telemetry: tel}
	a.onClose(func() error { return tel.Shutdown(context.Background()) })
	a.onClose(logger.Sync)
	return a, nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn(context.Background(), "shutdown errors", zap.Error(err))
	}
}

// nats connects to the broker once per invocation.
func (a *app) nats() (*bus.Conn, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	conn, err := bus.Connect(a.cfg.Bus, a.logger)
	if err != nil {
		return nil, err
	}
	a.conn = conn
	a.onClose(func() error { conn.Close(); return nil })
	return conn, nil
}

func (a *app) taskBus(ctx context.Context) (*bus.Bus, error) {
	conn, err := a.nats()
	if err != nil {
		return nil, err
	}
	return bus.New(ctx, conn.JS, a.cfg.Bus, a.logger)
}

func (a *app) store(ctx context.Context) (pending.Store, error) {
	var js jetstream.JetStream
	if a.cfg.Store.Backend == "nats" {
		conn, err := a.nats()
		if err != nil {
			return nil, err
		}
		js = conn.JS
	}
	s, err := pending.Open(ctx, a.cfg.Store, js)
	if err != nil {
		return nil, err
	}
	a.onClose(s.Close)
	return s, nil
}

func (a *app) completer(ctx context.Context) (llm.Completer, error) {
	c := a.cfg.LLM
	return llm.New(ctx, llm.Config{
		Provider:          c.Provider,
		Model:             c.Model,
		APIKey:            c.APIKey.Value(),
		BaseURL:           c.BaseURL,
		RequestsPerMinute: c.RequestsPerMinute,
		Timeout:           c.Timeout.Duration(),
	})
}

// directory loads the roster, or an empty one when no path is configured.
func (a *app) directory(ctx context.Context) (*directory.Directory, error) {
	if a.cfg.Directory.Path == "" {
		a.logger.Warn(ctx, "no directory configured, every person will be unreachable")
		return directory.New()
	}
	dir, err := directory.Load(a.cfg.Directory.Path)
	if err != nil {
		return nil, err
	}
	if a.cfg.Directory.Watch {
		go func() {
			if err := dir.Watch(ctx, a.logger); err != nil && ctx.Err() == nil {
				a.logger.Error(ctx, "directory watch stopped", zap.Error(err))
			}
		}()
	}
	return dir, nil
}

// warehouse opens the analytics warehouse. Failure is not fatal: metrics
// questions are then answered with an error.
func (a *app) warehouse(ctx context.Context) warehouse.Warehouse {
	wh, err := warehouse.Open(ctx, a.cfg.Warehouse, a.cfg.Transcripts.CredentialsFile)
	if err != nil {
		a.logger.Warn(ctx, "warehouse unavailable", zap.Error(err))
		return nil
	}
	a.onClose(wh.Close)
	return wh
}

func (a *app) temporal() (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  a.cfg.Temporal.HostPort,
		Namespace: a.cfg.Temporal.Namespace,
		Logger:    workflows.NewTemporalLogger(a.logger),
		ConnectionOptions: client.ConnectionOptions{
			DialOptions: []grpc.DialOption{grpc.WithUserAgent("standupd/" + version)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Temporal client: %w", err)
	}
	a.onClose(func() error { c.Close(); return nil })
	return c, nil
}
