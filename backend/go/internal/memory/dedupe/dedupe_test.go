package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGuardClaimRelease(t *testing.T) {
	ctx := context.Background()
	g, err := NewLocalGuard(10, time.Minute)
	require.NoError(t, err)

	ok, err := g.Claim(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = g.Claim(ctx, "h1")
	assert.False(t, ok, "second claim must fail while held")

	ok, _ = g.Claim(ctx, "h2")
	assert.True(t, ok)

	require.NoError(t, g.Release(ctx, "h1"))
	ok, _ = g.Claim(ctx, "h1")
	assert.True(t, ok)
}

func TestLocalGuardExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	g, err := newLocalGuard(10, time.Minute, func() time.Time { return now })
	require.NoError(t, err)

	ok, _ := g.Claim(context.Background(), "h")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = g.Claim(context.Background(), "h")
	assert.True(t, ok)
}

func TestLocalGuardConcurrentClaims(t *testing.T) {
	g, err := NewLocalGuard(100, time.Minute)
	require.NoError(t, err)

	var won int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := g.Claim(context.Background(), "same"); ok {
				atomic.AddInt32(&won, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won)
}

func TestRedisGuardUnreachableIsStorageError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	_, err := NewRedisGuard(rdb, time.Minute).Claim(context.Background(), "h")
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestNew(t *testing.T) {
	g, err := New(config.DedupeConfig{Provider: "local", TTL: "1m", Capacity: 5}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalGuard{}, g)

	_, err = New(config.DedupeConfig{Provider: "redis"}, nil)
	assert.Error(t, err)

	_, err = New(config.DedupeConfig{Provider: "memcached"}, nil)
	assert.Error(t, err)
}
