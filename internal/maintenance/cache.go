package maintenance

import (
	"context"

	"github.com/redis/go-redis/v9"

	"nyc-kinder-workers/internal/common/database"
)

// RedisInvalidator deletes cached overall scores.
type RedisInvalidator struct {
	client redis.Cmdable
}

func NewRedisInvalidator(client redis.Cmdable) *RedisInvalidator {
	return &RedisInvalidator{client: client}
}

func (r *RedisInvalidator) Invalidate(ctx context.Context, dbns []string) error {
	_, err := database.InvalidateScores(ctx, r.client, dbns)
	return err
}
