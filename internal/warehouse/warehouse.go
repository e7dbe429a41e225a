// Package warehouse runs analytics queries and appends metric rows.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/standupd/internal/config"
)

// MetricPercentDone is the share of tracker issues in the Done state.
const MetricPercentDone = "percent_done"

// MetricRow is one appended measurement.
type MetricRow struct {
	Time        time.Time `bigquery:"time"`
	MetricName  string    `bigquery:"metric_name"`
	MetricValue float64   `bigquery:"metric_value"`
}

// Warehouse is implemented by every backend.
type Warehouse interface {
	// Query runs a read-only statement and returns one map per row.
	Query(ctx context.Context, sql string) ([]map[string]any, error)
	// AppendMetrics adds rows to the metrics table.
	AppendMetrics(ctx context.Context, rows []MetricRow) error
	Close() error
}

// Open builds the backend selected by cfg.
func Open(ctx context.Context, cfg config.WarehouseConfig, credentialsFile string) (Warehouse, error) {
	switch cfg.Backend {
	case "bigquery":
		return NewBigQuery(ctx, cfg.ProjectID, cfg.Dataset, cfg.MetricsTable, credentialsFile)
	case "sqlite":
		return NewSQLite(cfg.SQLitePath, cfg.Dataset, cfg.MetricsTable)
	default:
		return nil, fmt.Errorf("unknown warehouse backend %q", cfg.Backend)
	}
}
