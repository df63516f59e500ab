package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/platform/obs"
)

const redisKeyPrefix = "geocode:"

type redisCoords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RedisGeocodeCache stores results as JSON values that expire after TTL.
type RedisGeocodeCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGeocodeCache(rdb *redis.Client, ttl time.Duration) *RedisGeocodeCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGeocodeCache{rdb: rdb, ttl: ttl}
}

func (c *RedisGeocodeCache) GetMany(ctx context.Context, keys []string) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.redis.GetMany")(&err)

	if c.rdb == nil {
		return nil, errors.New("geocode cache: redis client is nil")
	}
	uniq := uniqueKeys(keys)
	out := make(map[string]domain.Coordinates, len(uniq))
	if len(uniq) == 0 {
		return out, nil
	}

	rkeys := make([]string, len(uniq))
	for i, k := range uniq {
		rkeys[i] = redisKeyPrefix + k
	}
	vals, err := c.rdb.MGet(ctx, rkeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: mget: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rc redisCoords
		if err := json.Unmarshal([]byte(s), &rc); err != nil {
			// A corrupt entry is a miss; the next put overwrites it.
			continue
		}
		out[uniq[i]] = domain.Coordinates{Lat: rc.Lat, Lng: rc.Lng}
	}
	return out, nil
}

func (c *RedisGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, "geocode.cache.redis.PutMany")(&err)

	if c.rdb == nil {
		return errors.New("geocode cache: redis client is nil")
	}
	if len(results) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for k, coords := range results {
		if k == "" {
			return fmt.Errorf("insert geocode cache: empty address key")
		}
		b, err := json.Marshal(redisCoords{Lat: coords.Lat, Lng: coords.Lng})
		if err != nil {
			return fmt.Errorf("insert geocode cache key=%q: marshal: %w", k, err)
		}
		pipe.Set(ctx, redisKeyPrefix+k, b, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert geocode cache: pipeline: %w", err)
	}
	return nil
}
