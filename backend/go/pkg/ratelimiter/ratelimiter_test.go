package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurstAndRefill(t *testing.T) {
	now := time.Unix(0, 0)
	tb := newTokenBucket(1, 2, func() time.Time { return now })

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	now = now.Add(time.Second)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketNeverExceedsCapacity(t *testing.T) {
	now := time.Unix(0, 0)
	tb := newTokenBucket(10, 1, func() time.Time { return now })
	now = now.Add(time.Hour)

	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestKeyedLimiterIsolatesKeys(t *testing.T) {
	now := time.Unix(0, 0)
	kl, err := newKeyed(1, 1, 100, func() time.Time { return now })
	require.NoError(t, err)

	assert.True(t, kl.Allow("alice"))
	assert.False(t, kl.Allow("alice"))
	assert.True(t, kl.Allow("bob"), "bob gets a separate bucket")
}
