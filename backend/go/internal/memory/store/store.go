package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/internal/database/milvus"
	"github.com/eegeren/cortexa-ai/backend/go/internal/database/postgres"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
)

// Store 是按用户隔离的记忆存储。
//
// Write 每次都插入一条新记录，不做原地更新；去重由调用方负责。
// Search 只返回属于 userID 的记录，最多 k 条，距离均不超过 maxDistance，按距离升序。
type Store interface {
	Write(ctx context.Context, userID string, kind models.Kind, content string, embedding []float32, meta map[string]interface{}) (*models.Memory, error)
	Search(ctx context.Context, userID string, query []float32, k int, maxDistance float64) ([]models.Recall, error)
	HasHash(ctx context.Context, userID, hash string) (bool, error)
	Close() error
}

// New 根据 memory.store.provider 创建存储。
func New(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (Store, error) {
	dim := cfg.Embedding.Dimension

	switch cfg.Memory.Store.Provider {
	case "chromem":
		return NewChromemStore(dim), nil

	case "pgvector":
		db, err := postgres.GetDB(&cfg.Databases.Postgres)
		if err != nil {
			return nil, apperr.Storage("store.pgvector", err)
		}
		s := NewPgvectorStore(db, dim)
		if cfg.Databases.Postgres.AutoMigrate {
			if err := s.EnsureSchema(ctx); err != nil {
				return nil, err
			}
			log.Info("pgvector schema ensured")
		}
		return s, nil

	case "milvus":
		mcfg := withVectorDim(cfg.Databases.Milvus, dim)
		mc, err := milvus.GetClient(ctx, &mcfg)
		if err != nil {
			return nil, apperr.Storage("store.milvus", err)
		}
		if err := mc.EnsureCollection(ctx); err != nil {
			return nil, apperr.Storage("store.milvus", err)
		}
		mc.StartAutoFlush(milvusFlushInterval)
		return NewMilvusStore(mc, dim), nil

	default:
		return nil, apperr.Configuration("store", fmt.Errorf("unsupported store provider: %s", cfg.Memory.Store.Provider))
	}
}

// withVectorDim 用 embedding.dimension 覆盖 Schema 中向量字段的维度。
func withVectorDim(cfg config.MilvusConfig, dim int) config.MilvusConfig {
	fields := make([]config.FieldConfig, len(cfg.Schema.Fields))
	copy(fields, cfg.Schema.Fields)
	for i := range fields {
		if fields[i].DataType == "FloatVector" {
			fields[i].Dim = dim
		}
	}
	cfg.Schema.Fields = fields
	return cfg
}

// rankRecalls 丢弃超出距离阈值的命中，按距离升序排序并截断到 k 条。
func rankRecalls(hits []models.Recall, k int, maxDistance float64) []models.Recall {
	out := hits[:0]
	for _, h := range hits {
		if h.Distance <= maxDistance {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func checkDim(op string, want int, v []float32) error {
	if len(v) == 0 {
		return apperr.Storage(op, fmt.Errorf("empty embedding"))
	}
	if want > 0 && len(v) != want {
		return apperr.Storage(op, fmt.Errorf("dimension mismatch: want %d, got %d", want, len(v)))
	}
	return nil
}

func hashOf(meta map[string]interface{}) string {
	h, _ := meta[models.MetaHash].(string)
	return h
}

func encodeMeta(meta map[string]interface{}) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMeta(s string) map[string]interface{} {
	if s == "" {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}
