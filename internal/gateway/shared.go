package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// SharedCache is an optional second-level cache that outlives a run, so
// later runs and other processes reuse tool results for identical requests.
type SharedCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
}

// DefaultSharedTTL is how long shared entries live when no TTL is configured.
const DefaultSharedTTL = 24 * time.Hour

const sharedKeyPrefix = "scout:tools:"

// RedisCache is a SharedCache backed by redis. Entries are keyed by the
// request cache key alone and expire after ttl.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects to redis at url. A non-positive ttl uses
// DefaultSharedTTL.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "gateway: parse redis url")
	}
	if ttl <= 0 {
		ttl = DefaultSharedTTL
	}
	return &RedisCache{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

func sharedKey(key string) string {
	return sharedKeyPrefix + key
}

// Get returns the cached payload for key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, sharedKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "gateway: redis get")
	}
	return val, true, nil
}

// Set stores the payload for key.
func (c *RedisCache) Set(ctx context.Context, key string, val []byte) error {
	if err := c.rdb.Set(ctx, sharedKey(key), val, c.ttl).Err(); err != nil {
		return eris.Wrap(err, "gateway: redis set")
	}
	return nil
}

// Close releases the redis connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
