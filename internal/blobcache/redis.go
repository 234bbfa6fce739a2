package blobcache

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/liutentor/tentor/internal/metrics"
)

// RedisCache stores blobs in Redis, for deployments where the document cache
// should be shared across server instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis at the given URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{client: c}, nil
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) key(k string) string { return "blob:" + k }

func (c *RedisCache) Get(ctx context.Context, key string) []byte {
	res, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return recordHit(nil)
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("blob cache read failed, treating as miss")
		metrics.IncBlobCache("error")
		return nil
	}
	return recordHit(res)
}

func (c *RedisCache) Put(ctx context.Context, key string, blob []byte) {
	// No TTL: cached documents are kept until manually flushed, matching
	// the unbounded cache semantics of the SQLite backend.
	if err := c.client.Set(ctx, c.key(key), blob, 0).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("blob cache write failed, ignoring")
		metrics.IncBlobCache("error")
		return
	}
	metrics.IncBlobCache("put")
}
