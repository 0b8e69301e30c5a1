package milvus

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
	// 用于控制后台自动刷新协程的取消函数。
	cancelAutoFlush context.CancelFunc
}

// GetClient 使用单例模式创建并返回一个 Milvus 客户端实例。
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		if cfg.Address == "" {
			initErr = fmt.Errorf("未配置 Milvus 地址")
			return
		}
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("无法连接到 Milvus: %w", err)
			return
		}
		log.Println("✅ 成功连接到 Milvus!")
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() error {
	if c.Client == nil {
		return nil
	}
	c.StopAutoFlush(context.Background())
	log.Println("ℹ️ 已安全关闭 Milvus 连接。")
	return c.Client.Close()
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("Milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// Search 在集合上执行带过滤表达式的向量检索，度量为 L2（返回的分数是距离的平方）。
func (c *MilvusClient) Search(ctx context.Context, expr string, outputFields []string, vector []float32, topK int) ([]client.SearchResult, error) {
	schema := c.Config.Schema
	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, err
	}

	results, err := c.Client.Search(
		ctx,
		schema.CollectionName,
		nil,
		expr,
		outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		schema.VectorField,
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("在集合 '%s' 中搜索失败: %w", schema.CollectionName, err)
	}
	return results, nil
}

// Query 按标量表达式查询，不做向量检索。
func (c *MilvusClient) Query(ctx context.Context, expr string, outputFields []string, limit int64) (client.ResultSet, error) {
	collName := c.Config.Schema.CollectionName
	var opts []client.SearchQueryOptionFunc
	if limit > 0 {
		opts = append(opts, client.WithLimit(limit))
	}
	rs, err := c.Client.Query(ctx, collName, nil, expr, outputFields, opts...)
	if err != nil {
		return nil, fmt.Errorf("查询集合 '%s' 失败: %w", collName, err)
	}
	return rs, nil
}

// Insert 向集合写入一批列，列的顺序无关。
func (c *MilvusClient) Insert(ctx context.Context, columns ...entity.Column) error {
	collName := c.Config.Schema.CollectionName
	if _, err := c.Client.Insert(ctx, collName, "", columns...); err != nil {
		return fmt.Errorf("写入集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// FlushCollection 手动触发一次刷新操作，将内存中的数据写入磁盘。
func (c *MilvusClient) FlushCollection(ctx context.Context) error {
	collName := c.Config.Schema.CollectionName
	if err := c.Client.Flush(ctx, collName, false); err != nil {
		return fmt.Errorf("刷新集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// StartAutoFlush 启动后台自动刷新任务。
func (c *MilvusClient) StartAutoFlush(interval time.Duration) {
	if c.cancelAutoFlush != nil || interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelAutoFlush = cancel
	collName := c.Config.Schema.CollectionName

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := c.Client.Flush(flushCtx, collName, false); err != nil {
					log.Printf("❌ 自动刷新集合 '%s' 失败: %v", collName, err)
				}
				flushCancel()
			}
		}
	}()
}

// StopAutoFlush 停止后台自动刷新任务，并执行最后一次刷新。
func (c *MilvusClient) StopAutoFlush(ctx context.Context) {
	if c.cancelAutoFlush == nil {
		return
	}
	c.cancelAutoFlush()
	c.cancelAutoFlush = nil
	if err := c.FlushCollection(ctx); err != nil {
		log.Printf("❌ 停止自动刷新时，最终刷新失败: %v", err)
	}
}

// EnsureCollection 确保 Milvus 集合与索引存在，并加载到内存。
func (c *MilvusClient) EnsureCollection(ctx context.Context) error {
	collName := c.Config.Schema.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}
	if !exists {
		schema, err := BuildSchema(c.Config.Schema)
		if err != nil {
			return err
		}
		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		idx, err := BuildIndex(c.Config.Schema.Index)
		if err != nil {
			return err
		}
		if err := c.Client.CreateIndex(ctx, collName, c.Config.Schema.Index.FieldName, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", c.Config.Schema.Index.FieldName, err)
		}
		log.Printf("✅ 已创建 Milvus 集合 '%s'", collName)
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// BuildSchema 根据配置构建集合 Schema。
func BuildSchema(cfg config.SchemaConfig) (*entity.Schema, error) {
	schema := entity.NewSchema().
		WithName(cfg.CollectionName).
		WithDescription(cfg.Description)

	for _, fieldCfg := range cfg.Fields {
		field := entity.NewField().WithName(fieldCfg.Name)
		if fieldCfg.IsPrimaryKey {
			field = field.WithIsPrimaryKey(true)
		}
		if fieldCfg.IsAutoID {
			field = field.WithIsAutoID(true)
		}

		switch fieldCfg.DataType {
		case "Int64":
			field = field.WithDataType(entity.FieldTypeInt64)
		case "VarChar":
			field = field.WithDataType(entity.FieldTypeVarChar).WithMaxLength(int64(fieldCfg.MaxLength))
		case "FloatVector":
			field = field.WithDataType(entity.FieldTypeFloatVector).WithDim(int64(fieldCfg.Dim))
		case "Float":
			field = field.WithDataType(entity.FieldTypeFloat)
		case "Double":
			field = field.WithDataType(entity.FieldTypeDouble)
		case "Bool":
			field = field.WithDataType(entity.FieldTypeBool)
		default:
			return nil, fmt.Errorf("不支持的数据类型: %s", fieldCfg.DataType)
		}
		schema = schema.WithField(field)
	}
	return schema, nil
}

// BuildIndex 从配置构建索引实体。
func BuildIndex(indexCfg config.IndexConfig) (entity.Index, error) {
	metricType := entity.MetricType(indexCfg.MetricType)

	switch indexCfg.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(metricType, intParam(indexCfg.Params, "nlist", 128))
	case "HNSW":
		return entity.NewIndexHNSW(metricType, intParam(indexCfg.Params, "M", 8), intParam(indexCfg.Params, "efConstruction", 96))
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8(metricType, intParam(indexCfg.Params, "nlist", 128))
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", indexCfg.IndexType)
	}
}

// intParam 读取整数参数。YAML 解析出来的是 int，JSON 是 float64。
func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
