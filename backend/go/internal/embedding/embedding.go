package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	pkghttp "github.com/eegeren/cortexa-ai/backend/go/pkg/http"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
)

// NewEmdModel 根据配置创建 Embedding 实例。
//
// 返回的实例总是带有维度校验；开启缓存时外层再包一层 ristretto 缓存。
// 需要凭证的提供商在缺少 API 密钥时不会报错，而是在每次调用时返回配置错误。
func NewEmdModel(ctx context.Context, cfg config.EmbeddingConfig, cb config.CircuitBreakerConfig, log *logger.Logger) (Embedding, error) {
	timeout := config.Duration(cfg.Timeout, 60*time.Second)
	hc := pkghttp.NewClient("embedding."+cfg.Provider, timeout, cb, log)

	var base Embedding
	switch ModelType(cfg.Provider) {
	case OpenAI:
		if cfg.APIKey == "" {
			base = unconfigured{op: "embedding.openai", reason: "OPENAI_API_KEY is not set"}
			break
		}
		base = NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.BaseURL, hc.StdClient())
	case HuggingFace:
		if cfg.APIKey == "" {
			base = unconfigured{op: "embedding.huggingface", reason: "api key is not set"}
			break
		}
		base = NewHuggingFaceModel(cfg.APIKey, cfg.Model, cfg.BaseURL, hc)
	case Google:
		if cfg.APIKey == "" {
			base = unconfigured{op: "embedding.gemini", reason: "api key is not set"}
			break
		}
		m, err := NewGoogleModel(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		base = m
	case Ollama:
		m, err := NewOllamaModel(cfg.Model, cfg.BaseURL, hc.StdClient())
		if err != nil {
			return nil, err
		}
		base = m
	default:
		return nil, apperr.Configuration("embedding", fmt.Errorf("unsupported provider: %s", cfg.Provider))
	}

	guarded := WithDimension(base, cfg.Dimension)
	if !cfg.Cache.Enabled {
		return guarded, nil
	}
	cached, err := WithCache(guarded, cfg.Model, cfg.Cache.MaxItems, config.Duration(cfg.Cache.TTL, 0))
	if err != nil {
		return nil, fmt.Errorf("初始化 embedding 缓存失败: %w", err)
	}
	return cached, nil
}
