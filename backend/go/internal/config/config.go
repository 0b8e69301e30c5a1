package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FieldConfig 定义了 Milvus 集合中字段的配置。
type FieldConfig struct {
	Name         string `yaml:"name"`                // 字段名称
	DataType     string `yaml:"dataType"`            // 字段数据类型 (例如: "Int64", "VarChar", "FloatVector")
	IsPrimaryKey bool   `yaml:"isPrimaryKey"`        // 是否为主键
	IsAutoID     bool   `yaml:"isAutoID"`            // 是否自动生成ID
	Dim          int    `yaml:"dim,omitempty"`       // 向量维度 (仅适用于向量类型)
	MaxLength    int    `yaml:"maxLength,omitempty"` // 最大长度 (仅适用于VarChar类型)
}

// IndexConfig 定义了 Milvus 集合中索引的配置。
type IndexConfig struct {
	FieldName  string                 `yaml:"fieldName"`  // 要创建索引的字段名称
	IndexType  string                 `yaml:"indexType"`  // 索引类型 (例如: "IVF_FLAT", "HNSW")
	MetricType string                 `yaml:"metricType"` // 相似度度量类型，记忆检索要求 "L2"
	Params     map[string]interface{} `yaml:"params"`     // 索引参数 (例如: {"nlist": 128})
}

// SchemaConfig 定义了 Milvus 集合的 Schema 配置。
type SchemaConfig struct {
	CollectionName string        `yaml:"collectionName"` // 集合名称
	Description    string        `yaml:"description"`    // 集合描述
	VectorField    string        `yaml:"vectorField"`    // 向量字段名称
	Fields         []FieldConfig `yaml:"fields"`         // 字段配置列表
	Index          IndexConfig   `yaml:"index"`          // 索引配置
}

// MilvusConfig 定义了 Milvus 数据库的连接和 Schema 配置。
type MilvusConfig struct {
	Address string       `yaml:"address"` // Milvus 服务地址
	Schema  SchemaConfig `yaml:"schema"`  // Milvus 集合 Schema 配置
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// PostgresConfig 定义了 PostgreSQL (pgvector) 的连接配置。
type PostgresConfig struct {
	DSN             string `yaml:"dsn"`             // 连接串，可被 DATABASE_URL 覆盖
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
	AutoMigrate     bool   `yaml:"autoMigrate"`     // 启动时创建扩展、表和索引
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`     // Kafka Broker 地址列表
	MemoryTopic string   `yaml:"memoryTopic"` // 后台记忆任务的主题
	GroupID     string   `yaml:"groupID"`     // 消费者组
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Postgres PostgresConfig `yaml:"postgres"` // pgvector 记忆存储
	Milvus   MilvusConfig   `yaml:"milvus"`   // Milvus 记忆存储
	Redis    RedisConfig    `yaml:"redis"`    // 去重锁
	Kafka    KafkaConfig    `yaml:"kafka"`    // 后台任务队列
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// ServerConfig 定义了 HTTP 服务的配置。
type ServerConfig struct {
	Address         string `yaml:"address"`         // 监听地址
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 优雅关闭的最长等待时间
}

// AuthConfig 用于配置 bearer 凭证的校验。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // HS256 密钥
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// LLMConfig 是补全模型的配置。
type LLMConfig struct {
	Provider    string  `yaml:"provider"`    // "openai", "anthropic", "gemini", "ollama"
	APIKey      string  `yaml:"apiKey"`      // API 密钥
	BaseURL     string  `yaml:"baseURL"`     // 兼容 OpenAI 协议的地址
	Model       string  `yaml:"model"`       // 对话模型
	Temperature float32 `yaml:"temperature"` // 对话温度
	MaxTokens   int     `yaml:"maxTokens"`   // 部分提供商必填
	Timeout     string  `yaml:"timeout"`     // 例如: "120s"
}

// EmbeddingCacheConfig 是 embedding 缓存的配置。
type EmbeddingCacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	MaxItems int64  `yaml:"maxItems"` // 最多缓存的向量数
	TTL      string `yaml:"ttl"`
}

// EmbeddingConfig 是向量模型的配置。
type EmbeddingConfig struct {
	Provider  string               `yaml:"provider"`  // "openai", "ollama", "gemini", "huggingface"
	APIKey    string               `yaml:"apiKey"`    // API 密钥
	BaseURL   string               `yaml:"baseURL"`   // 服务地址
	Model     string               `yaml:"model"`     // 向量模型
	Dimension int                  `yaml:"dimension"` // 向量维度，必须与存储一致
	Timeout   string               `yaml:"timeout"`   // 例如: "60s"
	Cache     EmbeddingCacheConfig `yaml:"cache"`
}

// ExtractionConfig 是事实抽取模型的配置，提供商与凭证沿用 llm 部分。
type ExtractionConfig struct {
	Enabled  bool   `yaml:"enabled"`  // 关闭后只使用规则抽取
	Model    string `yaml:"model"`    // 抽取模型
	Timeout  string `yaml:"timeout"`  // 例如: "45s"
	MaxFacts int    `yaml:"maxFacts"` // 单条消息最多抽取的事实数
}

// StoreConfig 选择记忆存储后端。
type StoreConfig struct {
	Provider string `yaml:"provider"` // "pgvector", "milvus", "chromem"
}

// QueueConfig 是后台记忆任务队列的配置。
type QueueConfig struct {
	Mode       string `yaml:"mode"`       // "local" 或 "kafka"
	Workers    int    `yaml:"workers"`    // 本地 worker 数
	Buffer     int    `yaml:"buffer"`     // 本地队列长度
	JobTimeout string `yaml:"jobTimeout"` // 单个任务的最长执行时间
}

// DedupeConfig 是去重锁的配置。
type DedupeConfig struct {
	Provider string `yaml:"provider"` // "local" 或 "redis"
	TTL      string `yaml:"ttl"`      // 占用的有效期
	Capacity int    `yaml:"capacity"` // 本地模式下最多记录的 hash 数
}

// MemoryConfig 是召回和自动记忆的参数。
type MemoryConfig struct {
	RecallTopK         int          `yaml:"recallTopK"`
	RecallMaxDistance  float64      `yaml:"recallMaxDistance"`
	AutoMemoryMinScore float64      `yaml:"autoMemoryMinScore"`
	MinContentLength   int          `yaml:"minContentLength"`
	Store              StoreConfig  `yaml:"store"`
	Queue              QueueConfig  `yaml:"queue"`
	Dedupe             DedupeConfig `yaml:"dedupe"`
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了按用户限流的令牌桶配置。
type RateLimiterConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Rate     float64 `yaml:"rate"`     // 每秒速率
	Capacity int     `yaml:"capacity"` // 桶容量
	MaxKeys  int     `yaml:"maxKeys"`  // 最多同时跟踪的用户数
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Server     ServerConfig     `yaml:"server"`     // HTTP 服务
	Auth       AuthConfig       `yaml:"auth"`       // 认证配置
	LLM        LLMConfig        `yaml:"llm"`        // 补全模型
	Embedding  EmbeddingConfig  `yaml:"embedding"`  // 向量模型
	Extraction ExtractionConfig `yaml:"extraction"` // 事实抽取
	Memory     MemoryConfig     `yaml:"memory"`     // 记忆管线
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 从指定路径加载 YAML 配置，叠加在默认值之上，再应用环境变量并校验。
// path 为空时只使用默认值和环境变量。
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
			return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Duration 解析一个时长字符串，空串或非法值返回 fallback。
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
