package config

import (
	"errors"
	"fmt"
)

// Validate 检查取值范围和提供商名称。缺少 API 密钥不在这里报错，而是在首次调用模型时报告。
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case "openai", "anthropic", "gemini", "ollama":
	default:
		errs = append(errs, fmt.Errorf("不支持的 llm.provider: %q", c.LLM.Provider))
	}
	switch c.Embedding.Provider {
	case "openai", "ollama", "gemini", "huggingface":
	default:
		errs = append(errs, fmt.Errorf("不支持的 embedding.provider: %q", c.Embedding.Provider))
	}
	switch c.Memory.Store.Provider {
	case "pgvector":
		if c.Databases.Postgres.DSN == "" {
			errs = append(errs, errors.New("memory.store.provider=pgvector 需要 databases.postgres.dsn 或 DATABASE_URL"))
		}
	case "milvus", "chromem":
	default:
		errs = append(errs, fmt.Errorf("不支持的 memory.store.provider: %q", c.Memory.Store.Provider))
	}
	switch c.Memory.Queue.Mode {
	case "local", "kafka":
	default:
		errs = append(errs, fmt.Errorf("不支持的 memory.queue.mode: %q", c.Memory.Queue.Mode))
	}
	switch c.Memory.Dedupe.Provider {
	case "local", "redis":
	default:
		errs = append(errs, fmt.Errorf("不支持的 memory.dedupe.provider: %q", c.Memory.Dedupe.Provider))
	}

	if c.Embedding.Dimension <= 0 {
		errs = append(errs, errors.New("embedding.dimension 必须大于 0"))
	}
	if c.Memory.RecallTopK <= 0 {
		errs = append(errs, errors.New("memory.recallTopK 必须大于 0"))
	}
	if c.Memory.RecallMaxDistance < 0 {
		errs = append(errs, errors.New("memory.recallMaxDistance 不能为负数"))
	}
	if c.Memory.AutoMemoryMinScore < 0 || c.Memory.AutoMemoryMinScore > 1 {
		errs = append(errs, errors.New("memory.autoMemoryMinScore 必须在 [0,1] 之间"))
	}
	if c.Memory.Queue.Mode == "local" && c.Memory.Queue.Workers <= 0 {
		errs = append(errs, errors.New("memory.queue.workers 必须大于 0"))
	}
	if c.Memory.Queue.Mode == "kafka" && (len(c.Databases.Kafka.Brokers) == 0 || c.Databases.Kafka.MemoryTopic == "") {
		errs = append(errs, errors.New("memory.queue.mode=kafka 需要 databases.kafka.brokers 和 memoryTopic"))
	}
	// chromem 只存在于进程内存，worker 写入的记忆对 chat 服务不可见
	if c.Memory.Queue.Mode == "kafka" && c.Memory.Store.Provider == "chromem" {
		errs = append(errs, errors.New("memory.queue.mode=kafka 不能搭配 memory.store.provider=chromem，请改用 pgvector 或 milvus"))
	}
	if c.Auth.JwtSecret == "" {
		errs = append(errs, errors.New("auth.jwtSecret 不能为空"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置校验失败: %w", errors.Join(errs...))
	}
	return nil
}
