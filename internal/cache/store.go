package cache

import (
	"context"
	"time"
)

// Entry is one cached value plus the bookkeeping fields the store tracks.
type Entry struct {
	Key         string
	Value       []byte
	CreatedAt   time.Time
	ExpiresAt   time.Time
	HitCount    int64
	LastAccess  time.Time
}

// Stats summarizes the cache table for operational visibility.
type Stats struct {
	Count        int64
	EarliestAt   time.Time
	LatestAt     time.Time
}

// Store is a key/value store with TTL, keyed by the canonical cache key
// and valued by the serialized Response. CacheCheck performs a single Get
// per request; CacheWrite performs one awaited Set and, with low
// probability, an async DeleteExpired from the same request's session.
type Store interface {
	// Get returns the cached value, or ok=false if missing or expired. A
	// successful Get bumps hitCount/lastAccessedAt; these are advisory and
	// never surface to API callers.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set upserts value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeleteExpired purges every entry whose TTL has elapsed and reports
	// how many rows were removed.
	DeleteExpired(ctx context.Context) (int, error)

	// Stats reports row count and the earliest/latest createdAt for
	// operational dashboards.
	Stats(ctx context.Context) (Stats, error)

	Close() error
}
