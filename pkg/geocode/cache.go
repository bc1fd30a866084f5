package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"passage_router/pkg/logging"
	"passage_router/pkg/metrics"
	"passage_router/pkg/resolve"
)

// ErrCacheMiss is returned by a Store when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Store is a byte cache with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedLookup memoizes another lookup in a Store. Cache failures are logged
// and bypassed; they never fail a lookup.
type CachedLookup struct {
	next   resolve.Lookup
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLookup wraps next with a cache.
func NewCachedLookup(next resolve.Lookup, store Store, ttl time.Duration, logger *zap.Logger) *CachedLookup {
	return &CachedLookup{next: next, store: store, ttl: ttl, logger: logging.OrNop(logger)}
}

func cacheKey(place, country string) string {
	return "passage:geocode:" + normalizeName(country) + ":" + normalizeName(place)
}

// Lookup implements resolve.Lookup.
func (c *CachedLookup) Lookup(ctx context.Context, place, country string) ([]resolve.Candidate, error) {
	key := cacheKey(place, country)

	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var cands []resolve.Candidate
		if jerr := json.Unmarshal(data, &cands); jerr == nil {
			metrics.GeocodeCache.WithLabelValues("hit").Inc()
			return cands, nil
		}
		c.logger.Warn("discarding corrupt geocode cache entry", zap.String("key", key))
		metrics.GeocodeCache.WithLabelValues("error").Inc()
	case errors.Is(err, ErrCacheMiss):
		metrics.GeocodeCache.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
		metrics.GeocodeCache.WithLabelValues("error").Inc()
	}

	cands, err := c.next.Lookup(ctx, place, country)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(cands); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return cands, nil
}
