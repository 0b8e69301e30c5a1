package embedding

import (
	"context"
	"errors"
	"net/http"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIModel 是一个用于 OpenAI（或兼容协议）Embedding API 的客户端。
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel 创建一个新的 OpenAIModel 客户端。baseURL 为空时使用官方地址，hc 为空时使用默认 HTTP 客户端。
func NewOpenAIModel(apiKey, modelName, baseURL string, hc *http.Client) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg), model: modelName}
}

// Embed 为单个文本生成嵌入向量。
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch 为一批文本生成嵌入向量。
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := m.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	})
	if err != nil {
		return nil, apperr.Upstream("embedding.openai", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, apperr.Upstream("embedding.openai", errors.New("unexpected number of embeddings in response"))
	}

	// 按 index 还原输入顺序
	embeddings := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(texts) || embeddings[idx] != nil {
			idx = i
		}
		embeddings[idx] = d.Embedding
	}
	for _, e := range embeddings {
		if len(e) == 0 {
			return nil, apperr.Upstream("embedding.openai", errors.New("empty embedding in response"))
		}
	}
	return embeddings, nil
}
