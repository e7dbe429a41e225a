package pending

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

const schema = `CREATE TABLE IF NOT EXISTS pending_updates (
	key        TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLite stores records in a single table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating pending_updates table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Put(ctx context.Context, key string, rec standup.PendingUpdate) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding pending update: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_updates (key, body) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`, key, string(data))
	if err != nil {
		return fmt.Errorf("storing pending update %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrExists
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (standup.PendingUpdate, bool, error) {
	return s.scan(key, s.db.QueryRowContext(ctx, `SELECT body FROM pending_updates WHERE key = ?`, key))
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_updates WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting pending update %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Take(ctx context.Context, key string) (standup.PendingUpdate, bool, error) {
	return s.scan(key, s.db.QueryRowContext(ctx, `DELETE FROM pending_updates WHERE key = ? RETURNING body`, key))
}

func (s *SQLite) List(ctx context.Context) (map[string]standup.PendingUpdate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, body FROM pending_updates ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing pending updates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]standup.PendingUpdate)
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("scanning pending update: %w", err)
		}
		var rec standup.PendingUpdate
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("decoding pending update %s: %w", key, err)
		}
		out[key] = rec
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) scan(key string, row *sql.Row) (standup.PendingUpdate, bool, error) {
	var (
		rec  standup.PendingUpdate
		body string
	)
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, false, nil
		}
		return rec, false, fmt.Errorf("reading pending update %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return rec, false, fmt.Errorf("decoding pending update %s: %w", key, err)
	}
	return rec, true, nil
}
