package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// MessageReader 是 *kafka.Reader 中消费者用到的部分。
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Handler 处理一个记忆任务，通常是 MemoryService.Remember。
type Handler func(ctx context.Context, job models.MemoryJob) error

// KafkaConsumer 从记忆任务主题消费消息并交给 Handler 处理。
// 处理失败只记录日志，消息照常提交，不重投。
type KafkaConsumer struct {
	reader     MessageReader
	handler    Handler
	logger     *logger.Logger
	retryDelay time.Duration // 拉取失败后的等待时间
	wg         sync.WaitGroup
}

const defaultFetchRetryDelay = time.Second

// NewKafkaConsumer creates a new KafkaConsumer.
func NewKafkaConsumer(reader MessageReader, handler Handler, log *logger.Logger) *KafkaConsumer {
	if log == nil {
		log = logger.Discard()
	}
	return &KafkaConsumer{reader: reader, handler: handler, logger: log, retryDelay: defaultFetchRetryDelay}
}

// Start 在后台启动消费循环，ctx 取消后退出。
func (c *KafkaConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.Run(ctx)
	}()
}

// Wait 等待消费循环退出。
func (c *KafkaConsumer) Wait() {
	c.wg.Wait()
}

// Run 阻塞地消费，直到 ctx 取消。
func (c *KafkaConsumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to fetch message")
			// broker 不可达时 FetchMessage 会立即返回错误，不等待会空转
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to commit message")
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) {
	var job models.MemoryJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		c.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"offset": msg.Offset, "partition": msg.Partition}).
			Error("failed to unmarshal memory job")
		return
	}

	if err := c.handler(ctx, job); err != nil {
		c.logger.WithTrace(job.TraceID).WithUser(job.UserID).
			WithError(models.ErrorInfo{Message: err.Error()}).
			Warn("memory job failed")
	}
}
