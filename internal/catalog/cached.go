package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/festival-booking/internal/model"
)

const (
	showtimeKeyPrefix = "catalog:showtime:"
	showtimeListKey   = "catalog:showtimes"

	defaultCacheTTL = time.Minute
)

// Cached wraps a Source with a Redis read-through cache.  Redis errors are
// treated as misses; the catalog stays available when Redis is not.
type Cached struct {
	src   Source
	cache *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

// NewCached returns a cached catalog.  A nil client disables caching.
func NewCached(src Source, cache *redis.Client, ttl time.Duration, log *zap.Logger) *Cached {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{src: src, cache: cache, ttl: ttl, log: log}
}

// Showtime returns the showtime, consulting Redis first.  Misses are not
// cached so newly published showtimes appear immediately.
func (c *Cached) Showtime(ctx context.Context, id string) (*model.Showtime, error) {
	key := showtimeKeyPrefix + id
	var st model.Showtime
	if c.get(ctx, key, &st) {
		return &st, nil
	}
	out, err := c.src.Showtime(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, out)
	return out, nil
}

// List returns the whole programme.
func (c *Cached) List(ctx context.Context) ([]*model.Showtime, error) {
	var list []*model.Showtime
	if c.get(ctx, showtimeListKey, &list) {
		return list, nil
	}
	out, err := c.src.List(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, showtimeListKey, out)
	return out, nil
}

// Invalidate drops cached entries for the given showtimes and the list.
func (c *Cached) Invalidate(ctx context.Context, ids ...string) error {
	if c.cache == nil {
		return nil
	}
	keys := []string{showtimeListKey}
	for _, id := range ids {
		keys = append(keys, showtimeKeyPrefix+id)
	}
	return c.cache.Del(ctx, keys...).Err()
}

func (c *Cached) get(ctx context.Context, key string, dst interface{}) bool {
	if c.cache == nil {
		return false
	}
	raw, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("catalog cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cached) set(ctx context.Context, key string, v interface{}) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
