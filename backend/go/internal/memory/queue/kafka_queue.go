package queue

import (
	"context"
	"errors"

	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
)

// Publisher 把任务发送到外部消息队列。
type Publisher interface {
	Publish(ctx context.Context, job models.MemoryJob) error
	Close() error
}

// KafkaQueue 把任务发布到 Kafka，由 memory_service 消费。
// 发布本身也在一个小的 WorkerPool 里进行，请求路径不等待 broker 确认。
type KafkaQueue struct {
	pool *WorkerPool
	pub  Publisher
}

func NewKafkaQueue(pub Publisher, opts PoolOptions) *KafkaQueue {
	return &KafkaQueue{pool: NewWorkerPool(pub.Publish, opts), pub: pub}
}

func (q *KafkaQueue) Submit(ctx context.Context, job models.MemoryJob) error {
	return q.pool.Submit(ctx, job)
}

// Stats 中的 Succeeded 表示发布成功，不代表记忆已写入。
func (q *KafkaQueue) Stats() Stats {
	return q.pool.Stats()
}

func (q *KafkaQueue) Close() error {
	return errors.Join(q.pool.Close(), q.pub.Close())
}
