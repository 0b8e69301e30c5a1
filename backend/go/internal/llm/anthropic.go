package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
)

// Anthropic 是 Claude Messages API 的客户端。
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic 创建一个新的 Anthropic 客户端。maxTokens 为 0 时取 1024。
func NewAnthropic(model, apiKey, baseURL string, maxTokens int, hc *http.Client) *Anthropic {
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(baseURL))
	}
	if hc != nil {
		opts = append(opts, anthropicopt.WithHTTPClient(hc))
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Complete 把 system 消息合并为 system 参数，其余按顺序作为对话发送。
func (a *Anthropic) Complete(ctx context.Context, messages []models.Message, temperature float32) (string, error) {
	var system []anthropic.TextBlockParam
	var convo []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case models.RoleAssistant:
			convo = append(convo, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			convo = append(convo, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   a.maxTokens,
		System:      system,
		Messages:    convo,
		Temperature: anthropic.Float(float64(temperature)),
	})
	if err != nil {
		return "", apperr.Upstream("llm.anthropic", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", apperr.Upstream("llm.anthropic", errors.New("no text content in response"))
	}
	return sb.String(), nil
}
