package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nyc-kinder-workers/internal/common/config"
)

const scoreKeyPrefix = "school:score:"

// ScoreCacheKey is the redis key holding the cached score result of a school.
func ScoreCacheKey(dbn string) string {
	return scoreKeyPrefix + dbn
}

type RedisClient struct {
	Client *redis.Client
}

func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	return &RedisClient{Client: rdb}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// InvalidateScores drops cached scores for the given schools and returns
// how many keys existed.
func InvalidateScores(ctx context.Context, rdb redis.Cmdable, dbns []string) (int64, error) {
	if len(dbns) == 0 {
		return 0, nil
	}
	keys := make([]string, len(dbns))
	for i, dbn := range dbns {
		keys[i] = ScoreCacheKey(dbn)
	}
	n, err := rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("invalidate %d score keys: %w", len(keys), err)
	}
	return n, nil
}
