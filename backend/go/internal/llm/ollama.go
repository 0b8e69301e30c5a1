package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama Chat API 的 LLM 客户端。
type Ollama struct {
	client *olla.Client
	model  string
}

// NewOllama 创建一个新的 Ollama 客户端。baseURL 为空时默认为 "http://localhost:11434"。
func NewOllama(model, baseURL string, hc *http.Client) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, apperr.Configuration("llm.ollama", fmt.Errorf("invalid base URL: %w", err))
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Ollama{client: olla.NewClient(parsedURL, hc), model: model}, nil
}

// Complete 以非流式方式调用 /api/chat。
func (o *Ollama) Complete(ctx context.Context, messages []models.Message, temperature float32) (string, error) {
	msgs := make([]olla.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, olla.Message{Role: string(m.Role), Content: m.Content})
	}

	var sb strings.Builder
	stream := false
	err := o.client.Chat(ctx, &olla.ChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]interface{}{"temperature": temperature},
	}, func(resp olla.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", apperr.Upstream("llm.ollama", err)
	}
	return sb.String(), nil
}
