package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// keyGrace outlives the window so a key is never expired mid-window.
const keyGrace = 10 * time.Second

// RedisStore keeps each window as a sorted set of request times, shared by
// every instance pointing at the same Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore stores windows under prefix + "rate_limit:" + key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix + "rate_limit:"}
}

func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	k := s.prefix + key
	ms := now.UnixMilli()

	var card *redis.IntCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, k, "0", strconv.FormatInt(ms-window.Milliseconds(), 10))
		card = p.ZCard(ctx, k)
		p.ZAdd(ctx, k, redis.Z{Score: float64(ms), Member: strconv.FormatInt(ms, 10) + "-" + uuid.NewString()})
		p.Expire(ctx, k, window+keyGrace)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return card.Val(), nil
}

func (s *RedisStore) Count(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	floor := "(" + strconv.FormatInt(now.UnixMilli()-window.Milliseconds(), 10)
	return s.client.ZCount(ctx, s.prefix+key, floor, "+inf").Result()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
