package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/internal/embedding"
	"github.com/eegeren/cortexa-ai/backend/go/internal/llm"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/queue"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/store"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
)

// Options 控制召回和回复。
type Options struct {
	RecallTopK        int
	RecallMaxDistance float64
	Temperature       float32
}

// OptionsFromConfig 从配置中读取召回参数和对话温度。
func OptionsFromConfig(cfg *config.AppConfig) Options {
	return Options{
		RecallTopK:        cfg.Memory.RecallTopK,
		RecallMaxDistance: cfg.Memory.RecallMaxDistance,
		Temperature:       cfg.LLM.Temperature,
	}
}

// ChatService 负责一次对话：召回记忆、生成回复，然后把记忆写入交给后台队列。
type ChatService struct {
	embedder embedding.Embedding
	store    store.Store
	llm      llm.LLM
	queue    queue.Queue
	opts     Options
	logger   *logger.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(embedder embedding.Embedding, st store.Store, client llm.LLM, q queue.Queue, opts Options, log *logger.Logger) *ChatService {
	if opts.RecallTopK <= 0 {
		opts.RecallTopK = config.DefaultRecallTopK
	}
	if opts.RecallMaxDistance <= 0 {
		opts.RecallMaxDistance = config.DefaultRecallMaxDist
	}
	if log == nil {
		log = logger.Discard()
	}
	return &ChatService{
		embedder: embedder,
		store:    st,
		llm:      client,
		queue:    q,
		opts:     opts,
		logger:   log,
	}
}

// Complete 同步返回回复和本次使用的记忆。
//
// 消息向量化和补全失败会直接返回；召回失败只记日志，按没有记忆继续。
// 回复之后提交一个后台记忆任务，提交失败不影响已经得到的回复。
func (s *ChatService) Complete(ctx context.Context, identity models.Identity, message string) (*models.ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.InvalidInput("chat", errors.New("message is empty"))
	}
	traceID := logger.TraceFromContext(ctx)
	log := s.logger.WithTrace(traceID).WithUser(identity.ID)

	vec, err := s.embedder.Embed(ctx, message)
	if err != nil {
		return nil, err
	}

	memories := s.recall(ctx, log, identity.ID, vec)

	reply, err := s.llm.Complete(ctx, buildMessages(memories, message), s.opts.Temperature)
	if err != nil {
		return nil, err
	}

	job := models.MemoryJob{
		UserID:      identity.ID,
		Message:     message,
		TraceID:     traceID,
		SubmittedAt: time.Now(),
	}
	if err := s.queue.Submit(ctx, job); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("memory job not submitted")
	}

	return &models.ChatReply{Reply: reply, MemoriesUsed: memories}, nil
}

func (s *ChatService) recall(ctx context.Context, log *logger.Logger, userID string, vec []float32) []string {
	hits, err := s.store.Search(ctx, userID, vec, s.opts.RecallTopK, s.opts.RecallMaxDistance)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("memory recall failed, continuing without memories")
		return []string{}
	}
	memories := make([]string, 0, len(hits))
	for _, h := range hits {
		memories = append(memories, h.Content)
	}
	return memories
}
