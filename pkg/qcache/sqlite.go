package qcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// store is the SQLite backing for Cache. last_used_at carries nanosecond
// precision so LRU ordering holds even for entries touched within the same
// second.
type store struct {
	db         *sql.DB
	maxEntries int
}

func openStore(path string, maxEntries int) (*store, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			key          TEXT PRIMARY KEY,
			value        BLOB NOT NULL,
			created_at   INTEGER NOT NULL,
			last_used_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_entries_last_used ON entries(last_used_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &store{db: db, maxEntries: maxEntries}, nil
}

func (s *store) get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM entries WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE entries SET last_used_at = ? WHERE key = ?`,
		time.Now().UnixNano(), key,
	); err != nil {
		return nil, false, fmt.Errorf("touching cache entry: %w", err)
	}

	return value, true, nil
}

func (s *store) put(ctx context.Context, key string, value []byte) error {
	now := time.Now().UnixNano()
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO entries(key, value, created_at, last_used_at) VALUES (?, ?, ?, ?)`,
		key, value, now, now,
	); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}

	return s.evict(ctx)
}

// evict removes the least-recently-used entries beyond the size bound.
func (s *store) evict(ctx context.Context) error {
	if s.maxEntries <= 0 {
		return nil
	}

	n, err := s.len(ctx)
	if err != nil {
		return err
	}
	if n <= s.maxEntries {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM entries WHERE key IN (
			SELECT key FROM entries ORDER BY last_used_at ASC LIMIT ?
		)
	`, n-s.maxEntries); err != nil {
		return fmt.Errorf("evicting cache entries: %w", err)
	}

	return nil
}

func (s *store) len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

func (s *store) close() error {
	return s.db.Close()
}
