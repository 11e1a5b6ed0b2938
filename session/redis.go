package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session's turns in a Redis list with a sliding TTL.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// NewRedisClient dials Redis from a URL and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func turnsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:turns", sessionID)
}

func metaKey(sessionID string) string {
	return fmt.Sprintf("session:%s:meta", sessionID)
}

func (s *RedisStore) Register(ctx context.Context, sessionID, userID string) error {
	key := metaKey(sessionID)
	if err := s.rdb.HSetNX(ctx, key, "user_id", userID).Err(); err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	if err := s.rdb.HSetNX(ctx, key, "created_at", time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return s.touch(ctx, key)
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		b, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("marshal turn: %w", err)
		}
		values = append(values, b)
	}

	key := turnsKey(sessionID)
	if err := s.rdb.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("append turns: %w", err)
	}
	return s.touch(ctx, key)
}

func (s *RedisStore) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	key := turnsKey(sessionID)

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	rows, err := s.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("load session history: %w", err)
	}

	turns := make([]Turn, 0, len(rows))
	for i, row := range rows {
		var turn Turn
		if err := json.Unmarshal([]byte(row), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn at index %d: %w", i, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) touch(ctx context.Context, key string) error {
	if s.ttl <= 0 {
		return nil
	}
	if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("extend session ttl: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
