package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
)

// dimensionGuard 拒绝空文本，并把维度不符的向量当作上游错误。
type dimensionGuard struct {
	next Embedding
	dim  int
}

// WithDimension 包装一个 Embedding，保证输出向量维度为 dim。
func WithDimension(next Embedding, dim int) Embedding {
	return &dimensionGuard{next: next, dim: dim}
}

func (g *dimensionGuard) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.InvalidInput("embedding", errors.New("text must not be empty"))
	}
	vec, err := g.next.Embed(ctx, text)
	if err != nil {
		return nil, apperr.Upstream("embedding", err)
	}
	if err := g.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (g *dimensionGuard) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, apperr.InvalidInput("embedding", errors.New("text must not be empty"))
		}
	}
	vecs, err := g.next.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, apperr.Upstream("embedding", err)
	}
	if len(vecs) != len(texts) {
		return nil, apperr.Upstream("embedding", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs)))
	}
	for _, v := range vecs {
		if err := g.check(v); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (g *dimensionGuard) check(vec []float32) error {
	if len(vec) != g.dim {
		return apperr.Upstream("embedding", fmt.Errorf("dimension mismatch: got %d, want %d", len(vec), g.dim))
	}
	return nil
}

// unconfigured 在缺少凭证时代替真实客户端，每次调用都返回配置错误。
type unconfigured struct {
	op     string
	reason string
}

func (u unconfigured) err() error {
	return apperr.Configuration(u.op, errors.New(u.reason))
}

func (u unconfigured) Embed(context.Context, string) ([]float32, error) { return nil, u.err() }

func (u unconfigured) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, u.err()
}
