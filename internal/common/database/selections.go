package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nyc-kinder-workers/internal/models"
)

const selectionKeyPrefix = "compare:selection:"

func SelectionKey(userID string) string {
	return selectionKeyPrefix + userID
}

// SelectionStore persists comparison selections per user.
type SelectionStore interface {
	Get(ctx context.Context, userID string) (models.Selection, error)
	Save(ctx context.Context, sel models.Selection) error
	Delete(ctx context.Context, userID string) error
}

// RedisSelectionStore keeps each selection as a JSON value that expires
// ttl after its last change.
type RedisSelectionStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSelectionStore(rdb redis.Cmdable, ttl time.Duration) *RedisSelectionStore {
	return &RedisSelectionStore{rdb: rdb, ttl: ttl}
}

// Get returns the user's selection, or an empty one when none is stored.
func (s *RedisSelectionStore) Get(ctx context.Context, userID string) (models.Selection, error) {
	data, err := s.rdb.Get(ctx, SelectionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Selection{UserID: userID, DBNs: []string{}}, nil
	}
	if err != nil {
		return models.Selection{}, fmt.Errorf("get selection %s: %w", userID, err)
	}

	var sel models.Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return models.Selection{}, fmt.Errorf("decode selection %s: %w", userID, err)
	}
	if sel.DBNs == nil {
		sel.DBNs = []string{}
	}
	return sel, nil
}

func (s *RedisSelectionStore) Save(ctx context.Context, sel models.Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encode selection %s: %w", sel.UserID, err)
	}
	if err := s.rdb.Set(ctx, SelectionKey(sel.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save selection %s: %w", sel.UserID, err)
	}
	return nil
}

func (s *RedisSelectionStore) Delete(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, SelectionKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete selection %s: %w", userID, err)
	}
	return nil
}
