package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 是 Google GenAI 的补全客户端。每次调用新建会话，不保存历史。
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini 创建一个新的 Gemini 客户端。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, apperr.Configuration("llm.gemini", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Complete 把 system 消息作为 SystemInstruction，最后一条消息作为本轮输入，其余作为历史。
func (g *Gemini) Complete(ctx context.Context, messages []models.Message, temperature float32) (string, error) {
	gm := g.client.GenerativeModel(g.model)
	gm.SetTemperature(temperature)

	var system []genai.Part
	var turns []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, genai.Text(m.Content))
		case models.RoleAssistant:
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(system) > 0 {
		gm.SystemInstruction = &genai.Content{Parts: system}
	}
	if len(turns) == 0 {
		return "", apperr.InvalidInput("llm.gemini", errors.New("no user message"))
	}

	cs := gm.StartChat()
	cs.History = turns[:len(turns)-1]
	resp, err := cs.SendMessage(ctx, turns[len(turns)-1].Parts...)
	if err != nil {
		return "", apperr.Upstream("llm.gemini", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", apperr.Upstream("llm.gemini", errors.New("no text content in response"))
	}
	return sb.String(), nil
}

// Close 关闭底层连接。
func (g *Gemini) Close() error {
	return g.client.Close()
}
