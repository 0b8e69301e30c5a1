package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
)

const defaultHuggingFaceURL = "https://api-inference.huggingface.co/pipeline/feature-extraction/"

// Doer 是发送 HTTP 请求的最小接口，pkg/http.Client 和 *http.Client 都满足。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HuggingFaceModel 是一个用于 Hugging Face Inference API 的 Embedding 模型客户端。
type HuggingFaceModel struct {
	client  Doer
	model   string
	apiKey  string
	baseURL string
}

// NewHuggingFaceModel 创建一个新的 HuggingFaceModel 客户端。
func NewHuggingFaceModel(apiKey, modelName, baseURL string, client Doer) *HuggingFaceModel {
	if baseURL == "" {
		baseURL = defaultHuggingFaceURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HuggingFaceModel{client: client, model: modelName, apiKey: apiKey, baseURL: baseURL}
}

// Embed 为单个文本生成嵌入向量。
func (m *HuggingFaceModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch 为一批文本生成嵌入向量。
func (m *HuggingFaceModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"inputs":  texts,
		"options": map[string]bool{"wait_for_model": true},
	})
	if err != nil {
		return nil, apperr.Upstream("embedding.huggingface", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+m.model, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Configuration("embedding.huggingface", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, apperr.Upstream("embedding.huggingface", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperr.Upstream("embedding.huggingface", fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}

	var embeddings [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&embeddings); err != nil {
		return nil, apperr.Upstream("embedding.huggingface", fmt.Errorf("decode response: %w", err))
	}
	if len(embeddings) != len(texts) {
		return nil, apperr.Upstream("embedding.huggingface", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddings)))
	}
	return embeddings, nil
}
