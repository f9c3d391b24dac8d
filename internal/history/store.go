// Package history keeps a SQLite log of retrieved statements.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS statements (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	account       TEXT NOT NULL,
	month         INTEGER NOT NULL,
	year          INTEGER NOT NULL,
	path          TEXT NOT NULL,
	text_path     TEXT NOT NULL DEFAULT '',
	downloaded_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_statements_account ON statements(account, year, month)`

// Entry is one retrieved statement.
type Entry struct {
	RunID        string
	Account      string
	Month        int
	Year         int
	Path         string
	TextPath     string
	DownloadedAt time.Time
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path.
// Pass ":memory:" for an in-memory database (used by tests).
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts e.
func (s *Store) Add(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO statements (run_id, account, month, year, path, text_path, downloaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Account, e.Month, e.Year, e.Path, e.TextPath, e.DownloadedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording statement: %w", err)
	}
	return nil
}

// List returns the entries for account, or for every account if account is
// empty, most recent period first.
func (s *Store) List(ctx context.Context, account string) ([]Entry, error) {
	q := `SELECT run_id, account, month, year, path, text_path, downloaded_at FROM statements`
	var args []any
	if account != "" {
		q += ` WHERE account = ?`
		args = append(args, account)
	}
	q += ` ORDER BY year DESC, month DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing statements: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.Account, &e.Month, &e.Year, &e.Path, &e.TextPath, &e.DownloadedAt); err != nil {
			return nil, fmt.Errorf("scanning statement: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
