package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// maxQueryRows bounds how much of a result set is read back.
const maxQueryRows = 1000

// BigQuery is the production warehouse.
type BigQuery struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// NewBigQuery connects with application default credentials, or with
// credentialsFile when set.
func NewBigQuery(ctx context.Context, projectID, dataset, table, credentialsFile string, opts ...option.ClientOption) (*BigQuery, error) {
	if projectID == "" {
		return nil, errors.New("bigquery project ID is required")
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	return &BigQuery{client: client, dataset: dataset, table: table}, nil
}

func (b *BigQuery) Query(ctx context.Context, sql string) ([]map[string]any, error) {
	if err := CheckReadOnly(sql); err != nil {
		return nil, err
	}
	if err := b.dryRun(ctx, sql); err != nil {
		return nil, err
	}
	it, err := b.client.Query(sql).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}

	var out []map[string]any
	for len(out) < maxQueryRows {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading query results: %w", err)
		}
		m := make(map[string]any, len(row))
		for k, v := range row {
			m[k] = v
		}
		out = append(out, m)
	}
	return out, nil
}

// dryRun asks BigQuery to plan sql and refuses anything other than a
// SELECT statement.
func (b *BigQuery) dryRun(ctx context.Context, sql string) error {
	q := b.client.Query(sql)
	q.DryRun = true
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("planning query: %w", err)
	}
	status := job.LastStatus()
	if status == nil || status.Statistics == nil {
		return ErrNotReadOnly
	}
	stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics)
	if !ok || !isSelectStatement(stats.StatementType) {
		return ErrNotReadOnly
	}
	return nil
}

func isSelectStatement(statementType string) bool {
	return strings.EqualFold(statementType, "SELECT")
}

func (b *BigQuery) AppendMetrics(ctx context.Context, rows []MetricRow) error {
	if len(rows) == 0 {
		return nil
	}
	ins := b.client.Dataset(b.dataset).Table(b.table).Inserter()
	if err := ins.Put(ctx, rows); err != nil {
		return fmt.Errorf("appending to %s.%s: %w", b.dataset, b.table, err)
	}
	return nil
}

func (b *BigQuery) Close() error {
	return b.client.Close()
}
