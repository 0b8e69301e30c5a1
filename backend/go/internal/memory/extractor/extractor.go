package extractor

import (
	"context"

	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
)

// DefaultMaxFacts 是单条消息最多产出的候选事实数。
const DefaultMaxFacts = 8

// Extractor 从一条用户消息中抽取候选事实。
type Extractor interface {
	Extract(ctx context.Context, message string) ([]models.CandidateFact, error)
}

// FactExtractor 先用模型抽取，模型不可用、调用失败或没有结果时退回规则抽取。
// 它从不返回错误。
type FactExtractor struct {
	model   Extractor // 可以为 nil
	pattern *PatternExtractor
	logger  *logger.Logger
}

// NewFactExtractor 组合模型抽取器与规则抽取器。model 为 nil 时只使用规则。
func NewFactExtractor(model Extractor, pattern *PatternExtractor, log *logger.Logger) *FactExtractor {
	if pattern == nil {
		pattern = NewPatternExtractor(DefaultMaxFacts)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &FactExtractor{model: model, pattern: pattern, logger: log}
}

// Extract 返回至多 DefaultMaxFacts 个候选事实。
func (f *FactExtractor) Extract(ctx context.Context, message string) ([]models.CandidateFact, error) {
	if f.model != nil {
		facts, err := f.model.Extract(ctx, message)
		switch {
		case err != nil:
			f.logger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("model extraction failed, using pattern fallback")
		case len(facts) == 0:
			f.logger.WithError(models.ErrorInfo{Message: errNoFacts.Error()}).Debug("model extraction empty, using pattern fallback")
		default:
			return facts, nil
		}
	}
	return f.pattern.extract(message), nil
}
