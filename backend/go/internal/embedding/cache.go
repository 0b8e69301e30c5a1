package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
)

// CachedEmbedding 用 ristretto 缓存文本到向量的映射，相同文本不会重复请求上游。
type CachedEmbedding struct {
	next  Embedding
	model string
	ttl   time.Duration
	cache *ristretto.Cache
}

// WithCache 包装一个 Embedding。maxItems 是最多缓存的向量数，ttl 为 0 表示不过期。
func WithCache(next Embedding, model string, maxItems int64, ttl time.Duration) (*CachedEmbedding, error) {
	if maxItems <= 0 {
		maxItems = 10000
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedEmbedding{next: next, model: model, ttl: ttl, cache: cache}, nil
}

func (c *CachedEmbedding) key(text string) string {
	return c.model + "\x00" + text
}

func (c *CachedEmbedding) get(text string) ([]float32, bool) {
	v, ok := c.cache.Get(c.key(text))
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float32)
	return vec, ok
}

func (c *CachedEmbedding) set(text string, vec []float32) {
	if c.ttl > 0 {
		c.cache.SetWithTTL(c.key(text), vec, 1, c.ttl)
		return
	}
	c.cache.Set(c.key(text), vec, 1)
}

// Embed 命中缓存时直接返回。
func (c *CachedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.get(text); ok {
		return vec, nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.set(text, vec)
	return vec, nil
}

// EmbedBatch 只为未命中的文本请求上游。
func (c *CachedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if vec, ok := c.get(t); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, apperr.Upstream("embedding.cache", fmt.Errorf("expected %d embeddings, got %d", len(missing), len(vecs)))
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		c.set(missing[j], vec)
	}
	return out, nil
}

// Wait 等待缓冲中的写入生效。
func (c *CachedEmbedding) Wait() { c.cache.Wait() }

// Close 释放缓存。
func (c *CachedEmbedding) Close() { c.cache.Close() }
