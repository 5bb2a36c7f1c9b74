package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type lruEntry struct {
	value   []byte
	expires time.Time
}

// LRUFront wraps a Store with a bounded in-process LRU, so repeated hits on
// a hot grid cell within one process skip the round trip to the backing
// store. It never changes cache semantics: a miss here still falls through
// to the backing Store. An entry read from the backing store is served from
// the front for at most one minute, independent of its TTL there.
type LRUFront struct {
	backing Store
	cache   *lru.Cache[string, lruEntry]
}

// NewLRUFront wraps backing with an LRU of the given size. size <= 0 is
// treated as 1 (a single-entry front).
func NewLRUFront(backing Store, size int) (*LRUFront, error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, err
	}
	return &LRUFront{backing: backing, cache: c}, nil
}

// Get implements Store.
func (f *LRUFront) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if e, ok := f.cache.Get(key); ok {
		if time.Now().Before(e.expires) {
			return e.value, true, nil
		}
		f.cache.Remove(key)
	}

	value, ok, err := f.backing.Get(ctx, key)
	if err != nil || !ok {
		return value, ok, err
	}
	// We don't know the backing store's exact expiry here; cache it for a
	// short, fixed window just to absorb bursts on the same grid cell.
	f.cache.Add(key, lruEntry{value: value, expires: time.Now().Add(1 * time.Minute)})
	return value, true, nil
}

// Set implements Store.
func (f *LRUFront) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.cache.Remove(key)
	return f.backing.Set(ctx, key, value, ttl)
}

// DeleteExpired implements Store.
func (f *LRUFront) DeleteExpired(ctx context.Context) (int, error) {
	return f.backing.DeleteExpired(ctx)
}

// Stats implements Store.
func (f *LRUFront) Stats(ctx context.Context) (Stats, error) {
	return f.backing.Stats(ctx)
}

// Close implements Store.
func (f *LRUFront) Close() error {
	return f.backing.Close()
}
