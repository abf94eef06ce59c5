package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// CacheStore keeps cache records in a single-file SQLite database so entries
// survive restarts. Writes are committed per call; a crash loses at most the write in flight.
type CacheStore struct {
	db *sql.DB
}

var _ application.CacheBackend = (*CacheStore)(nil)

// Open creates the cache database at path if needed. A nil log discards output.
func Open(ctx context.Context, path string, log *zap.Logger) (*CacheStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
		`CREATE TABLE IF NOT EXISTS quote_cache (
			ticker     TEXT NOT NULL,
			kind       TEXT NOT NULL,
			record     TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			PRIMARY KEY (ticker, kind)
		)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	log.Info("sqlite.cache_opened", zap.String("path", path))
	return &CacheStore{db: db}, nil
}

func (s *CacheStore) Close() error { return s.db.Close() }

func (s *CacheStore) Load(ctx context.Context, key domain.CacheKey) ([]byte, error) {
	var rec string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM quote_cache WHERE ticker = ? AND kind = ?`,
		key.Ticker, string(key.Kind),
	).Scan(&rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, application.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite load: %w", err)
	}
	return []byte(rec), nil
}

func (s *CacheStore) Save(ctx context.Context, key domain.CacheKey, record []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quote_cache (ticker, kind, record, updated_at)
		VALUES (?, ?, ?, strftime('%s','now'))
		ON CONFLICT (ticker, kind) DO UPDATE
		  SET record = excluded.record, updated_at = excluded.updated_at`,
		key.Ticker, string(key.Kind), string(record),
	)
	if err != nil {
		return fmt.Errorf("sqlite save: %w", err)
	}
	return nil
}
