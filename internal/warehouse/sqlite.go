package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "modernc.org/sqlite"
)

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	// BigQuery quotes a whole qualified name in one pair of backticks.
	qualifiedQuoted = regexp.MustCompile("`([A-Za-z_][A-Za-z0-9_]*)\\.([A-Za-z_][A-Za-z0-9_]*)`")
)

// SQLite is a local warehouse for development. The database file is attached
// under the dataset name so fully qualified table names work unchanged.
// Query runs on a separate pool that attaches the file with mode=ro.
type SQLite struct {
	db      *sql.DB
	reader  *sql.DB
	path    string
	roPath  string
	dataset string
	table   string
}

// NewSQLite opens the warehouse at path and creates the metrics table.
func NewSQLite(path, dataset, table string) (*SQLite, error) {
	if !identPattern.MatchString(dataset) || !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid dataset or table name %q.%q", dataset, table)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating warehouse dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite warehouse: %w", err)
	}
	db.SetMaxOpenConns(1)
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resolving warehouse path: %w", err)
	}
	w := &SQLite{
		db:      db,
		path:    path,
		roPath:  (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}).String(),
		dataset: dataset,
		table:   table,
	}

	err = w.withConn(context.Background(), w.db, w.path, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(), fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s.%s (time TEXT NOT NULL, metric_name TEXT NOT NULL, metric_value REAL NOT NULL)`,
			dataset, table))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating metrics table: %w", err)
	}

	reader, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening sqlite reader: %w", err)
	}
	reader.SetMaxOpenConns(1)
	w.reader = reader
	return w, nil
}

// withConn runs fn on a connection from db that has target attached as the
// dataset.
func (w *SQLite) withConn(ctx context.Context, db *sql.DB, target string, fn func(*sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var n int
	if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM pragma_database_list WHERE name = ?`, w.dataset).Scan(&n); err != nil {
		return fmt.Errorf("listing attached databases: %w", err)
	}
	if n == 0 {
		if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS `+w.dataset, target); err != nil {
			return fmt.Errorf("attaching %s: %w", w.path, err)
		}
	}
	return fn(conn)
}

func (w *SQLite) Query(ctx context.Context, query string) ([]map[string]any, error) {
	if err := CheckReadOnly(query); err != nil {
		return nil, err
	}
	query = qualifiedQuoted.ReplaceAllString(query, "$1.$2")

	var out []map[string]any
	err := w.withConn(ctx, w.reader, w.roPath, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("running query: %w", err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		for rows.Next() && len(out) < maxQueryRows {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return fmt.Errorf("reading query results: %w", err)
			}
			m := make(map[string]any, len(cols))
			for i, c := range cols {
				if b, ok := vals[i].([]byte); ok {
					m[c] = string(b)
				} else {
					m[c] = vals[i]
				}
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	return out, err
}

func (w *SQLite) AppendMetrics(ctx context.Context, rows []MetricRow) error {
	if len(rows) == 0 {
		return nil
	}
	return w.withConn(ctx, w.db, w.path, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt := fmt.Sprintf(`INSERT INTO %s.%s (time, metric_name, metric_value) VALUES (?, ?, ?)`, w.dataset, w.table)
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, stmt, r.Time.UTC().Format(time.RFC3339Nano), r.MetricName, r.MetricValue); err != nil {
				return fmt.Errorf("appending metric %s: %w", r.MetricName, err)
			}
		}
		if err := tx.Commit(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			return err
		}
		return nil
	})
}

func (w *SQLite) Close() error {
	return errors.Join(w.reader.Close(), w.db.Close())
}
