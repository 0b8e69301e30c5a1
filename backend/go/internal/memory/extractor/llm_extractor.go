package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/llm"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
)

// ExtractSystemPrompt 要求模型只输出 JSON 数组。
const ExtractSystemPrompt = "You extract long-lived user facts for a personal memory store.\n" +
	"Rules:\n" +
	"- Return ONLY a valid JSON array (no prose).\n" +
	"- Each item: {\"kind\": \"profile|preference|fact|task|company|contact|note\", " +
	"\"content\": string, \"score\": number in [0,1]}.\n" +
	"- Keep content short, factual, first-person normalized if needed (e.g., \"Adim Yusuf.\").\n" +
	"- Ignore ephemeral info (greetings, small talk) and speculation.\n" +
	"- Prefer Turkish output for content if the user wrote Turkish.\n"

const defaultScore = 0.6

// LlmExtractor 调用补全模型（温度 0）抽取事实。
type LlmExtractor struct {
	llm      llm.LLM
	timeout  time.Duration
	maxFacts int
}

// NewLlmExtractor 创建模型抽取器。timeout 为 0 表示只受调用方 ctx 限制。
func NewLlmExtractor(client llm.LLM, timeout time.Duration, maxFacts int) *LlmExtractor {
	if maxFacts <= 0 {
		maxFacts = DefaultMaxFacts
	}
	return &LlmExtractor{llm: client, timeout: timeout, maxFacts: maxFacts}
}

// Extract 调用失败时返回 ErrUpstream / ErrConfiguration，输出不是 JSON 数组时返回 ErrParse。
func (e *LlmExtractor) Extract(ctx context.Context, message string) ([]models.CandidateFact, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.llm.Complete(ctx, []models.Message{
		{Role: models.RoleSystem, Content: ExtractSystemPrompt},
		{Role: models.RoleUser, Content: fmt.Sprintf("Message:\n%s\n\nJSON array only.", message)},
	}, 0)
	if err != nil {
		return nil, err
	}

	facts, err := ParseFacts(raw)
	if err != nil {
		return nil, err
	}
	if len(facts) > e.maxFacts {
		facts = facts[:e.maxFacts]
	}
	return facts, nil
}

// ParseFacts 把模型输出解析为候选事实。
//
// 只接受 JSON 数组（允许外面包一层 ``` 代码块）。非对象元素和空 content 会被跳过；
// kind 归一化，未知值记为 note；score 缺失或非法时取 0.6，并截断到 [0,1]。
func ParseFacts(raw string) ([]models.CandidateFact, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &items); err != nil {
		return nil, apperr.Parse("extractor", fmt.Errorf("model output is not a JSON array: %w", err))
	}

	out := make([]models.CandidateFact, 0, len(items))
	for _, item := range items {
		var obj map[string]interface{}
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			continue
		}
		content, _ := obj["content"].(string)
		content = models.NormalizeContent(content)
		if content == "" {
			continue
		}
		kind, _ := obj["kind"].(string)
		out = append(out, models.CandidateFact{
			Kind:    models.NormalizeKind(kind),
			Content: content,
			Score:   clamp01(scoreOf(obj["score"])),
		})
	}
	return out, nil
}

func scoreOf(v interface{}) float64 {
	switch s := v.(type) {
	case float64:
		return s
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return defaultScore
}

func clamp01(f float64) float64 {
	switch {
	case f != f: // NaN
		return defaultScore
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// stripCodeFence 去掉模型常见的 ```json ... ``` 包裹。
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return s
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

var errNoFacts = errors.New("model returned no usable facts")
