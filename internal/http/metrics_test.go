package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/standupd/internal/telemetry"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	m := NewHTTPMetrics(tel.Meter(httpInstrumentationName), nil)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/slack/events", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusUnauthorized)
	})

	for _, r := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodPost, "/slack/events", nil),
	} {
		e.ServeHTTP(httptest.NewRecorder(), r)
	}

	ctx := context.Background()
	assert.Equal(t, int64(3), tel.CounterValue(ctx, "standupd.http.requests_total"))
	assert.Equal(t, int64(2), tel.CounterValue(ctx, "standupd.http.requests_total",
		attribute.String("endpoint", "/health"), attribute.Int("status", http.StatusOK)))
	assert.Equal(t, int64(1), tel.CounterValue(ctx, "standupd.http.requests_total",
		attribute.String("endpoint", "/slack/events"), attribute.Int("status", http.StatusUnauthorized)))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/slack/events", normalizePath("/slack/events"))
}
