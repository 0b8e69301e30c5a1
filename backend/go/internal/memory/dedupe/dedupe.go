// Package dedupe 保证同一条事实（按内容 hash）在并发的后台任务之间只被写入一次。
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/go-redis/redis/v8"
)

// Guard 对 hash 加短期占用。Claim 返回 false 表示别的任务正在写同一条事实。
type Guard interface {
	Claim(ctx context.Context, hash string) (bool, error)
	Release(ctx context.Context, hash string) error
}

// New 根据配置创建 Guard。rdb 只在 provider 为 redis 时使用。
func New(cfg config.DedupeConfig, rdb *redis.Client) (Guard, error) {
	ttl := config.Duration(cfg.TTL, 10*time.Minute)
	switch cfg.Provider {
	case "", "local":
		return NewLocalGuard(cfg.Capacity, ttl)
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("dedupe provider redis requires a redis client")
		}
		return NewRedisGuard(rdb, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported dedupe provider: %s", cfg.Provider)
	}
}
