package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "werkstatt:"

// Redis stores entries in a Redis server under the "werkstatt:" prefix.
type Redis struct {
	rc *redis.Client
}

// NewRedis connects lazily; the first command dials the server.
func NewRedis(addr, password string, db int) *Redis {
	return &Redis{rc: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})}
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(rc *redis.Client) *Redis {
	return &Redis{rc: rc}
}

// Get treats redis.Nil and transport errors alike as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.rc.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		err := r.rc.Del(ctx, redisKeyPrefix+key).Err()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	return r.rc.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rc.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rc.Close()
}
