package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("wizard state not found")

type Store interface {
	Load(ctx context.Context, scheduleID string) (*State, error)
	Save(ctx context.Context, s *State) error
	Delete(ctx context.Context, scheduleID string) error
}

// RedisStore keeps wizard state as JSON under wizard:<scheduleID>.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(scheduleID string) string {
	return "wizard:" + scheduleID
}

func (r *RedisStore) Load(ctx context.Context, scheduleID string) (*State, error) {
	val, err := r.rdb.Get(ctx, key(scheduleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s State
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key(s.ScheduleID), b, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, scheduleID string) error {
	return r.rdb.Del(ctx, key(scheduleID)).Err()
}
