package service

import (
	"context"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/internal/database/redis"
	"github.com/eegeren/cortexa-ai/backend/go/internal/llm"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/dedupe"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/extractor"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
)

// BuildExtractor 按 extraction 配置组合模型抽取与规则抽取。
// 关闭抽取模型或缺少凭证时只使用规则。
func BuildExtractor(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*extractor.FactExtractor, error) {
	pattern := extractor.NewPatternExtractor(cfg.Extraction.MaxFacts)
	if !cfg.Extraction.Enabled {
		return extractor.NewFactExtractor(nil, pattern, log), nil
	}

	opts := llm.OptionsFromConfig(cfg.LLM, cfg.Middleware.CircuitBreaker, log)
	opts.Model = cfg.Extraction.Model
	opts.Timeout = config.Duration(cfg.Extraction.Timeout, 45*time.Second)
	client, err := llm.NewClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	if !llm.IsConfigured(client) {
		log.Warn("extraction model has no credentials, using pattern extraction only")
		return extractor.NewFactExtractor(nil, pattern, log), nil
	}
	model := extractor.NewLlmExtractor(client, opts.Timeout, cfg.Extraction.MaxFacts)
	return extractor.NewFactExtractor(model, pattern, log), nil
}

// BuildGuard 创建去重锁，redis 模式下连接 databases.redis。
func BuildGuard(cfg *config.AppConfig) (dedupe.Guard, error) {
	if cfg.Memory.Dedupe.Provider != "redis" {
		return dedupe.New(cfg.Memory.Dedupe, nil)
	}
	rdb, err := redis.GetClient(&cfg.Databases.Redis)
	if err != nil {
		return nil, err
	}
	return dedupe.New(cfg.Memory.Dedupe, rdb)
}
