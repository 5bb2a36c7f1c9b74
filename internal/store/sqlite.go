// Package store provides the default persistence-backed implementation of
// cache.Store, used for local development and tests.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // register the pure-Go SQLite driver

	"github.com/sells-group/recommend-consensus/internal/cache"
)

// SQLiteStore implements cache.Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(10)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS recommendation_cache (
	key              TEXT PRIMARY KEY,
	value            BLOB NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at       DATETIME NOT NULL,
	hit_count        INTEGER NOT NULL DEFAULT 0,
	last_accessed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_recommendation_cache_expires_at ON recommendation_cache(expires_at);
`

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Get implements cache.Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM recommendation_cache WHERE key = ? AND expires_at > datetime('now')`, key)

	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "sqlite: get")
	}

	// Hit bookkeeping is advisory; a failure here must not fail the read.
	_, _ = s.db.ExecContext(ctx,
		`UPDATE recommendation_cache SET hit_count = hit_count + 1, last_accessed_at = datetime('now') WHERE key = ?`, key)

	return value, true, nil
}

// Set implements cache.Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendation_cache (key, value, created_at, expires_at, hit_count)
		VALUES (?, ?, datetime('now'), ?, 0)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			created_at = datetime('now'),
			expires_at = excluded.expires_at,
			hit_count = 0,
			last_accessed_at = NULL`,
		key, value, expiresAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: set")
	}
	return nil
}

// DeleteExpired implements cache.Store.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recommendation_cache WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

// Stats implements cache.Store.
func (s *SQLiteStore) Stats(ctx context.Context) (cache.Stats, error) {
	var stats cache.Stats
	var earliest, latest sql.NullTime
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM recommendation_cache`)
	if err := row.Scan(&stats.Count, &earliest, &latest); err != nil {
		return stats, eris.Wrap(err, "sqlite: stats")
	}
	if earliest.Valid {
		stats.EarliestAt = earliest.Time
	}
	if latest.Valid {
		stats.LatestAt = latest.Time
	}
	return stats, nil
}

// Close implements cache.Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
