package breaker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys for shared breaker state.
const (
	redisKeyState    = "chembl:breaker:state"
	redisKeyFailures = "chembl:breaker:failures"
	redisKeyOpenedAt = "chembl:breaker:opened_at"
)

// RedisStore shares breaker state across processes via Redis. Multiple
// extraction runs hitting the same upstream then see each other's failures
// and back off together.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed state store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Load implements StateStore. Missing keys yield the default healthy state.
func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	stateStr, err := s.redis.Get(ctx, redisKeyState).Result()
	if err == redis.Nil {
		return defaultSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get breaker state: %w", err)
	}

	failures, err := s.redis.Get(ctx, redisKeyFailures).Int()
	if err != nil && err != redis.Nil {
		return Snapshot{}, fmt.Errorf("get breaker failures: %w", err)
	}

	openedAtUnix, err := s.redis.Get(ctx, redisKeyOpenedAt).Int64()
	if err != nil && err != redis.Nil {
		return Snapshot{}, fmt.Errorf("get breaker opened_at: %w", err)
	}

	snap := Snapshot{
		State:    State(stateStr),
		Failures: failures,
	}
	if openedAtUnix > 0 {
		snap.OpenedAt = time.Unix(openedAtUnix, 0)
	}
	return snap, nil
}

// Save implements StateStore. Fields are written atomically via a pipeline.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	pipe := s.redis.Pipeline()
	pipe.Set(ctx, redisKeyState, string(snap.State), 0)
	pipe.Set(ctx, redisKeyFailures, snap.Failures, 0)

	openedAtUnix := int64(0)
	if !snap.OpenedAt.IsZero() {
		openedAtUnix = snap.OpenedAt.Unix()
	}
	pipe.Set(ctx, redisKeyOpenedAt, openedAtUnix, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store breaker state in redis: %w", err)
	}
	return nil
}
