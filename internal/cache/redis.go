package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis connection pool is intentionally small; lookups issue at most a
// couple of cache round-trips each.
const poolSize = 10

const dialCheckTimeout = 5 * time.Second

// Options carries the connection settings for NewRedis.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Redis is the production Cache. Values are stored as JSON so timestamps
// round-trip as ISO-8601 strings and the layout stays inspectable with
// redis-cli.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedis connects and verifies reachability. Startup is the one moment a
// cache outage is fatal; afterwards the client degrades per Cache contract.
func NewRedis(opts Options, log *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialCheckTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return &Redis{client: client, log: log}, nil
}

func (r *Redis) Get(ctx context.Context, key string, dest interface{}) bool {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("cache get failed, treating as miss",
				zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		r.log.Warn("cache value corrupt, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (r *Redis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		r.log.Warn("cache set skipped, value not serializable",
			zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.log.Warn("cache set failed, value dropped",
			zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis) Exists(ctx context.Context, key string) bool {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.log.Warn("cache exists failed, treating as absent",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return n > 0
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

func (r *Redis) DeletePattern(ctx context.Context, pattern string) (int, error) {
	deleted := 0
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("cache delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache scan %s: %w", pattern, err)
	}
	return deleted, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
