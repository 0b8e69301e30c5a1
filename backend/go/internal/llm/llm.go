package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	pkghttp "github.com/eegeren/cortexa-ai/backend/go/pkg/http"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
)

// LLM 定义了所有补全模型客户端必须实现的通用接口。
//
// 失败时返回的错误属于 apperr.ErrConfiguration（缺少凭证）或 apperr.ErrUpstream（其余所有远端问题），不做重试。
type LLM interface {
	Complete(ctx context.Context, messages []models.Message, temperature float32) (string, error)
}

// Options 是创建客户端所需的参数。同一份 llm 配置可以按不同的模型和超时创建多个客户端，
// 例如对话和事实抽取。
type Options struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Breaker   config.CircuitBreakerConfig
	Logger    *logger.Logger
}

// OptionsFromConfig 从 llm 配置构造对话客户端参数。
func OptionsFromConfig(cfg config.LLMConfig, cb config.CircuitBreakerConfig, log *logger.Logger) Options {
	return Options{
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Timeout:   config.Duration(cfg.Timeout, 120*time.Second),
		Breaker:   cb,
		Logger:    log,
	}
}

// NewClient 是一个工厂函数，根据提供商创建 LLM 客户端。
// 需要凭证的提供商在缺少 API 密钥时返回一个每次调用都报配置错误的客户端，服务仍可启动。
func NewClient(ctx context.Context, opts Options) (LLM, error) {
	hc := pkghttp.NewClient("llm."+opts.Provider+"."+opts.Model, opts.Timeout, opts.Breaker, opts.Logger)

	switch opts.Provider {
	case "openai":
		if opts.APIKey == "" {
			return unconfigured{op: "llm.openai"}, nil
		}
		return NewOpenAI(opts.Model, opts.APIKey, opts.BaseURL, hc.StdClient()), nil
	case "anthropic":
		if opts.APIKey == "" {
			return unconfigured{op: "llm.anthropic"}, nil
		}
		return NewAnthropic(opts.Model, opts.APIKey, opts.BaseURL, opts.MaxTokens, hc.StdClient()), nil
	case "gemini":
		if opts.APIKey == "" {
			return unconfigured{op: "llm.gemini"}, nil
		}
		return NewGemini(ctx, opts.Model, opts.APIKey)
	case "ollama":
		return NewOllama(opts.Model, opts.BaseURL, hc.StdClient())
	default:
		return nil, apperr.Configuration("llm", fmt.Errorf("unsupported LLM provider: %s", opts.Provider))
	}
}

// IsConfigured 判断客户端是否具备调用条件（有凭证）。
func IsConfigured(c LLM) bool {
	_, missing := c.(unconfigured)
	return c != nil && !missing
}

type unconfigured struct{ op string }

func (u unconfigured) Complete(context.Context, []models.Message, float32) (string, error) {
	return "", apperr.Configuration(u.op, errors.New("api key is not set"))
}
