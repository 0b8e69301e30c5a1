package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/segmentio/kafka-go"
)

// MessageWriter 是 *kafka.Writer 中 JobPublisher 用到的部分，测试时可替换。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// JobPublisher 把后台记忆任务写入 Kafka。
type JobPublisher struct {
	writer MessageWriter
}

// NewJobPublisher 使用客户端的 writer 创建发布者。
func NewJobPublisher(client *KafkaClient) *JobPublisher {
	return &JobPublisher{writer: client.Writer}
}

// NewJobPublisherWithWriter 使用自定义的 writer 创建发布者。
func NewJobPublisherWithWriter(w MessageWriter) *JobPublisher {
	return &JobPublisher{writer: w}
}

// Publish 将 MemoryJob 序列化为 JSON 并发送，key 为用户 id。
func (p *JobPublisher) Publish(ctx context.Context, job models.MemoryJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal memory job: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.UserID),
		Value: data,
	}); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close 关闭底层的 writer 连接。
func (p *JobPublisher) Close() error {
	return p.writer.Close()
}
