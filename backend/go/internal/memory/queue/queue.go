// Package queue 负责把后台记忆任务从请求路径上移走。
// 提交永远不阻塞调用方，失败只记录日志和计数。
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/internal/database/kafka"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
)

var (
	ErrQueueFull   = errors.New("memory queue is full")
	ErrQueueClosed = errors.New("memory queue is closed")
)

// Handler 处理一个任务。
type Handler func(ctx context.Context, job models.MemoryJob) error

// Stats 是队列的累计计数。
type Stats struct {
	Submitted uint64 `json:"submitted"`
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Queue 接收后台记忆任务。
type Queue interface {
	Submit(ctx context.Context, job models.MemoryJob) error
	Stats() Stats
	Close() error
}

// New 根据 memory.queue.mode 创建队列。
// local 模式下任务由 handler 在本进程执行；kafka 模式下任务被发布到主题，handler 不使用。
func New(cfg *config.AppConfig, handler Handler, log *logger.Logger) (Queue, error) {
	qc := cfg.Memory.Queue
	opts := PoolOptions{
		Workers:    qc.Workers,
		Buffer:     qc.Buffer,
		JobTimeout: config.Duration(qc.JobTimeout, 0),
		Logger:     log,
	}

	switch qc.Mode {
	case "", "local":
		if handler == nil {
			return nil, fmt.Errorf("local memory queue requires a handler")
		}
		return NewWorkerPool(handler, opts), nil
	case "kafka":
		client, err := kafka.GetClient(&cfg.Databases.Kafka)
		if err != nil {
			return nil, err
		}
		return NewKafkaQueue(kafka.NewJobPublisher(client), opts), nil
	default:
		return nil, fmt.Errorf("unsupported queue mode: %s", qc.Mode)
	}
}
