package dedupe

import (
	"context"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/go-redis/redis/v8"
)

const keyPrefix = "cortexa:dedupe:"

// RedisGuard 用 SETNX + TTL 实现，多个进程共享。
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, hash string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, keyPrefix+hash, 1, g.ttl).Result()
	if err != nil {
		return false, apperr.Storage("dedupe.redis.claim", err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, hash string) error {
	if err := g.rdb.Del(ctx, keyPrefix+hash).Err(); err != nil {
		return apperr.Storage("dedupe.redis.release", err)
	}
	return nil
}
