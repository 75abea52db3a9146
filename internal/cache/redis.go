package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a shared Redis instance. Store errors are logged
// and degrade to miss/no-op per the Cache contract; they never reach callers.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the Redis instance described by url
// (redis://[user:pass@]host:port/db).
func NewRedis(url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opt)}, nil
}

// Get reads key; any store failure reads as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache: redis get %s: %v", key, err)
		}
		return nil, false
	}
	return val, true
}

// SetWithExpiry writes key with ttl; failures are logged and dropped.
func (r *Redis) SetWithExpiry(ctx context.Context, key string, ttl time.Duration, value []byte) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("cache: redis set %s: %v", key, err)
	}
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
