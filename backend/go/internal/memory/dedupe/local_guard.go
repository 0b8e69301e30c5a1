package dedupe

import (
	"context"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/pkg/util"
)

// LocalGuard 是进程内实现，基于带 TTL 的 LRU。
// 容量满时最旧的占用会被淘汰，相当于提前过期。
type LocalGuard struct {
	claims *util.LRUCache[string, struct{}]
}

func NewLocalGuard(capacity int, ttl time.Duration) (*LocalGuard, error) {
	return newLocalGuard(capacity, ttl, nil)
}

func newLocalGuard(capacity int, ttl time.Duration, now func() time.Time) (*LocalGuard, error) {
	if capacity <= 0 {
		capacity = 10000
	}
	c, err := util.NewWithConfig[string, struct{}](util.CacheConfig{Capacity: capacity, TTL: ttl, Now: now})
	if err != nil {
		return nil, err
	}
	return &LocalGuard{claims: c}, nil
}

func (g *LocalGuard) Claim(_ context.Context, hash string) (bool, error) {
	return g.claims.PutIfAbsent(hash, struct{}{}, 1), nil
}

func (g *LocalGuard) Release(_ context.Context, hash string) error {
	g.claims.Remove(hash)
	return nil
}
