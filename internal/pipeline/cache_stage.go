package pipeline

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/recommend-consensus/internal/cache"
	"github.com/sells-group/recommend-consensus/internal/model"
)

// purgeSampleDenominator implements the spec's "probability 1/50 per
// write" randomized eviction trigger.
const purgeSampleDenominator = 50

// runCacheCheck computes the canonical key and, unless ForceRefresh,
// performs a single read.
func runCacheCheck(ctx context.Context, store cache.Store, s *requestState) {
	if len(s.request.Categories) == 0 {
		s.request.Categories = []model.Category{model.CategoryAll}
	}

	if s.geocodingAvailable {
		s.cacheKey = cache.BuildKey(s.lat, s.lng, s.request.Categories)
	} else {
		s.cacheKey = cache.BuildAddressKey(s.request.Address, s.request.Categories)
	}

	if s.request.ForceRefresh || store == nil {
		return
	}

	raw, ok, err := store.Get(ctx, s.cacheKey)
	if err != nil {
		zap.L().Warn("cachecheck: read failed", zap.String("key", s.cacheKey), zap.Error(err))
		return
	}
	if !ok {
		zap.L().Debug("cachecheck: miss", zap.String("key", s.cacheKey))
		return
	}

	var resp model.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		zap.L().Warn("cachecheck: cached value unparsable", zap.String("key", s.cacheKey), zap.Error(err))
		return
	}

	s.cacheHit = true
	resp.FromCache = true
	s.cachedResponse = &resp
}

// runCacheWrite serializes and persists the final response under cacheKey
// with the configured TTL. The write is awaited, not fire-and-forget,
// because the store's session is tied to the request. Write failure is
// logged and swallowed — a persistence failure never fails the request.
func runCacheWrite(ctx context.Context, store cache.Store, s *requestState, resp *model.Response, ttl time.Duration) {
	if store == nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		zap.L().Warn("cachewrite: marshal failed", zap.Error(err))
		return
	}

	if err := store.Set(ctx, s.cacheKey, raw, ttl); err != nil {
		zap.L().Warn("cachewrite: store failed", zap.String("key", s.cacheKey), zap.Error(err))
		return
	}

	if rand.IntN(purgeSampleDenominator) == 0 {
		go func() {
			n, err := store.DeleteExpired(context.Background())
			if err != nil {
				zap.L().Warn("cachewrite: purge failed", zap.Error(err))
				return
			}
			zap.L().Debug("cachewrite: purged expired entries", zap.Int("count", n))
		}()
	}
}
