package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/internal/embedding"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/dedupe"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/extractor"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/store"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Options 是过滤阈值。
type Options struct {
	MinScore         float64
	MinContentLength int
}

// OptionsFromConfig 从记忆配置中读取阈值。
func OptionsFromConfig(cfg config.MemoryConfig) Options {
	return Options{MinScore: cfg.AutoMemoryMinScore, MinContentLength: cfg.MinContentLength}
}

// Report 汇总一次 Remember 的结果，便于日志和测试。
type Report struct {
	Extracted int // 抽取器产出的候选数
	Accepted  int // 通过过滤的条数
	Duplicate int // 已存储或正被其他任务写入
	Written   int
	Failed    int
}

// MemoryService 执行后台记忆写入：抽取、过滤、去重、向量化、写入。
type MemoryService struct {
	extractor extractor.Extractor
	embedder  embedding.Embedding
	store     store.Store
	guard     dedupe.Guard
	opts      Options
	logger    *logger.Logger
}

// NewMemoryService creates a new MemoryService.
func NewMemoryService(ext extractor.Extractor, embedder embedding.Embedding, st store.Store, guard dedupe.Guard, opts Options, log *logger.Logger) *MemoryService {
	if log == nil {
		log = logger.Discard()
	}
	return &MemoryService{
		extractor: ext,
		embedder:  embedder,
		store:     st,
		guard:     guard,
		opts:      opts,
		logger:    log,
	}
}

// Remember 处理一个后台任务。
//
// 任意一个事实向量化失败时整批放弃；单条写入失败只影响这一条。
// 返回的错误只用于队列统计和日志，不会回到聊天请求。
func (s *MemoryService) Remember(ctx context.Context, job models.MemoryJob) (Report, error) {
	var report Report
	log := s.logger.WithTrace(job.TraceID).WithUser(job.UserID)

	candidates, err := s.extractor.Extract(ctx, job.Message)
	if err != nil {
		return report, fmt.Errorf("extract: %w", err)
	}
	report.Extracted = len(candidates)

	accepted := FilterCandidates(job.UserID, candidates, s.opts.MinScore, s.opts.MinContentLength)
	report.Accepted = len(accepted)
	if len(accepted) == 0 {
		log.Debug("no memory candidates accepted")
		return report, nil
	}

	// 1. 去重：已存储的跳过，正被其他任务写入的跳过
	fresh := make([]Accepted, 0, len(accepted))
	for _, a := range accepted {
		dup, err := s.isDuplicate(ctx, job.UserID, a.Hash)
		if err != nil {
			s.releaseAll(ctx, fresh)
			return report, err
		}
		if dup {
			report.Duplicate++
			continue
		}
		fresh = append(fresh, a)
	}
	if len(fresh) == 0 {
		log.WithPayload(map[string]interface{}{"duplicates": report.Duplicate}).Debug("all memory candidates already stored")
		return report, nil
	}

	// 2. 并发向量化，任意一个失败则整批放弃
	vectors := make([][]float32, len(fresh))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range fresh {
		i, content := i, a.Content
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, content)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.releaseAll(ctx, fresh)
		report.Failed = len(fresh)
		return report, fmt.Errorf("embed memory batch: %w", err)
	}

	// 3. 逐条写入
	var writeErrs []error
	for i, a := range fresh {
		if _, err := s.store.Write(ctx, job.UserID, a.Kind, a.Content, vectors[i], a.Meta); err != nil {
			report.Failed++
			writeErrs = append(writeErrs, err)
			s.release(ctx, a.Hash)
			log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("memory write failed")
			continue
		}
		report.Written++
	}

	log.WithPayload(map[string]interface{}{
		"extracted": report.Extracted,
		"accepted":  report.Accepted,
		"duplicate": report.Duplicate,
		"written":   report.Written,
		"failed":    report.Failed,
	}).Info("memory job finished")

	return report, errors.Join(writeErrs...)
}

// isDuplicate 先查存储，再在 guard 上占用 hash。返回 false 时调用方持有占用。
func (s *MemoryService) isDuplicate(ctx context.Context, userID, hash string) (bool, error) {
	stored, err := s.store.HasHash(ctx, userID, hash)
	if err != nil {
		return false, fmt.Errorf("check stored hash: %w", err)
	}
	if stored {
		return true, nil
	}
	if s.guard == nil {
		return false, nil
	}
	claimed, err := s.guard.Claim(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("claim hash: %w", err)
	}
	return !claimed, nil
}

func (s *MemoryService) release(ctx context.Context, hash string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, hash); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("release dedupe claim failed")
	}
}

func (s *MemoryService) releaseAll(ctx context.Context, facts []Accepted) {
	for _, a := range facts {
		s.release(ctx, a.Hash)
	}
}

// Handle 适配 queue.Handler 和 consumer.Handler。
func (s *MemoryService) Handle(ctx context.Context, job models.MemoryJob) error {
	_, err := s.Remember(ctx, job)
	return err
}
