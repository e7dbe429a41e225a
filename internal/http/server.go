// Package http serves the Slack Events API endpoint plus health and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/standupd/internal/config"
	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/telemetry"
)

// maxBodyBytes caps Slack event payloads.
const maxBodyBytes = 1 << 20

// EventHandler processes a verified Events API callback.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev slackevents.EventsAPIEvent) error
}

// Server receives Slack events.
type Server struct {
	echo          *echo.Echo
	handler       EventHandler
	signingSecret string
	logger        *logging.Logger
	config        config.ServerConfig

	// inflight tracks events still being handled after the response was sent.
	inflight sync.WaitGroup
}

// NewServer creates the HTTP server. Event handling runs after Slack has been
// acknowledged, since Slack retries anything slower than three seconds.
func NewServer(cfg config.ServerConfig, signingSecret config.Secret, handler EventHandler, logger *logging.Logger, tel *telemetry.Telemetry) (*Server, error) {
	if handler == nil {
		return nil, fmt.Errorf("event handler cannot be nil")
	}
	if !signingSecret.IsSet() {
		return nil, fmt.Errorf("slack signing secret is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(tel.Meter(httpInstrumentationName), logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Debug(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:          e,
		handler:       handler,
		signingSecret: signingSecret.Value(),
		logger:        logger,
		config:        cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	events := s.echo.Group("/slack")
	if s.config.RateLimit > 0 {
		events.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.config.RateLimit),
				Burst:     s.config.RateBurst,
				ExpiresIn: 3 * time.Minute,
			}),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
		}))
	}
	events.Use(middleware.BodyLimit(fmt.Sprintf("%dB", maxBodyBytes)))
	events.POST("/events", s.handleEvents)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight events.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	err := s.echo.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn(ctx, "shutdown timed out with events in flight")
	}
	return err
}

// ServeHTTP lets tests drive the router directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
