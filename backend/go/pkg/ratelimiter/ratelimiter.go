package ratelimiter

import (
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/pkg/util"
)

// RateLimiter decides whether a single request may proceed.
type RateLimiter interface {
	Allow() bool
}

// KeyedLimiter keeps one token bucket per key (e.g. per user).
// Buckets live in an LRU so idle keys are eventually forgotten.
type KeyedLimiter struct {
	rate     float64
	capacity int
	buckets  *util.LRUCache[string, *TokenBucket]
	now      func() time.Time
}

// NewKeyed creates a KeyedLimiter tracking at most maxKeys buckets.
func NewKeyed(rate float64, capacity, maxKeys int) (*KeyedLimiter, error) {
	return newKeyed(rate, capacity, maxKeys, time.Now)
}

func newKeyed(rate float64, capacity, maxKeys int, now func() time.Time) (*KeyedLimiter, error) {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	buckets, err := util.NewWithConfig[string, *TokenBucket](util.CacheConfig{Capacity: maxKeys})
	if err != nil {
		return nil, err
	}
	return &KeyedLimiter{rate: rate, capacity: capacity, buckets: buckets, now: now}, nil
}

// Allow consumes one token from key's bucket.
func (k *KeyedLimiter) Allow(key string) bool {
	b := k.buckets.GetOrCreate(key, func() *TokenBucket {
		return newTokenBucket(k.rate, k.capacity, k.now)
	})
	return b.Allow()
}
