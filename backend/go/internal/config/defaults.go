package config

// 默认值，均可被 YAML 或环境变量覆盖。
const (
	DefaultAPIBase        = "https://api.openai.com/v1"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbedModel     = "text-embedding-3-small"
	DefaultExtractModel   = "gpt-4o-mini"
	DefaultJwtSecret      = "devsecret"
	DefaultDimension      = 1536
	DefaultRecallTopK     = 8
	DefaultRecallMaxDist  = 0.8
	DefaultMinScore       = 0.55
	DefaultMinContentLen  = 10
	DefaultMaxFacts       = 8
	DefaultChatTemp       = 0.3
	DefaultMemoryTopic    = "cortexa.memory.jobs"
	DefaultCollectionName = "memories"
)

// DefaultConfig 返回一份可以直接在开发环境运行的配置。
func DefaultConfig() *AppConfig {
	return &AppConfig{
		App: AppInfo{
			Name:        "cortexa",
			Version:     "dev",
			Environment: "development",
		},
		Server: ServerConfig{
			Address:         ":8000",
			ShutdownTimeout: "10s",
		},
		Auth: AuthConfig{JwtSecret: DefaultJwtSecret},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     DefaultAPIBase,
			Model:       DefaultChatModel,
			Temperature: DefaultChatTemp,
			MaxTokens:   1024,
			Timeout:     "120s",
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			BaseURL:   DefaultAPIBase,
			Model:     DefaultEmbedModel,
			Dimension: DefaultDimension,
			Timeout:   "60s",
			Cache: EmbeddingCacheConfig{
				Enabled:  false,
				MaxItems: 10000,
				TTL:      "1h",
			},
		},
		Extraction: ExtractionConfig{
			Enabled:  true,
			Model:    DefaultExtractModel,
			Timeout:  "45s",
			MaxFacts: DefaultMaxFacts,
		},
		Memory: MemoryConfig{
			RecallTopK:         DefaultRecallTopK,
			RecallMaxDistance:  DefaultRecallMaxDist,
			AutoMemoryMinScore: DefaultMinScore,
			MinContentLength:   DefaultMinContentLen,
			Store:              StoreConfig{Provider: "chromem"},
			Queue: QueueConfig{
				Mode:       "local",
				Workers:    4,
				Buffer:     256,
				JobTimeout: "3m",
			},
			Dedupe: DedupeConfig{
				Provider: "local",
				TTL:      "10m",
				Capacity: 10000,
			},
		},
		Logger: LoggerConfig{Level: "info"},
		Databases: DatabaseConfigs{
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 1800,
				AutoMigrate:     true,
			},
			Milvus: MilvusConfig{
				Address: "localhost:19530",
				Schema:  DefaultMemorySchema(DefaultCollectionName, DefaultDimension),
			},
			Redis: RedisConfig{Address: "localhost:6379"},
			Kafka: KafkaConfig{
				Brokers:     []string{"localhost:9092"},
				MemoryTopic: DefaultMemoryTopic,
				GroupID:     "cortexa-memory-writer",
			},
		},
		Middleware: MiddlewareConfig{
			RateLimiter: RateLimiterConfig{
				Enabled:  true,
				Rate:     2,
				Capacity: 10,
				MaxKeys:  10000,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Timeout:          "30s",
			},
		},
	}
}

// DefaultMemorySchema 返回记忆集合在 Milvus 中的 Schema。
func DefaultMemorySchema(collection string, dim int) SchemaConfig {
	return SchemaConfig{
		CollectionName: collection,
		Description:    "per-user long-term memories",
		VectorField:    "embedding",
		Fields: []FieldConfig{
			{Name: "id", DataType: "VarChar", IsPrimaryKey: true, MaxLength: 64},
			{Name: "user_id", DataType: "VarChar", MaxLength: 256},
			{Name: "kind", DataType: "VarChar", MaxLength: 32},
			{Name: "content", DataType: "VarChar", MaxLength: 4096},
			{Name: "content_hash", DataType: "VarChar", MaxLength: 64},
			{Name: "meta", DataType: "VarChar", MaxLength: 4096},
			{Name: "created_at", DataType: "Int64"},
			{Name: "embedding", DataType: "FloatVector", Dim: dim},
		},
		Index: IndexConfig{
			FieldName:  "embedding",
			IndexType:  "IVF_FLAT",
			MetricType: "L2",
			Params:     map[string]interface{}{"nlist": 100},
		},
	}
}
