package store

import (
	"context"
	"fmt"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/database/postgres"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// memoryRow 对应 memories 表。
type memoryRow struct {
	ID        string            `gorm:"type:uuid;primaryKey"`
	UserID    string            `gorm:"column:user_id;not null"`
	Kind      string            `gorm:"not null"`
	Content   string            `gorm:"not null"`
	Embedding pgvector.Vector   `gorm:"type:vector;not null"`
	Meta      datatypes.JSONMap `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
}

func (memoryRow) TableName() string { return "memories" }

type recallRow struct {
	Content  string
	Meta     datatypes.JSONMap
	Distance float64
}

// PgvectorStore 使用 PostgreSQL + pgvector，距离为 L2（<->）。
type PgvectorStore struct {
	db  *gorm.DB
	dim int
}

func NewPgvectorStore(db *gorm.DB, dim int) *PgvectorStore {
	return &PgvectorStore{db: db, dim: dim}
}

// schemaStatements 返回建表语句，全部幂等。
func schemaStatements(dim int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memories (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			meta JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_mem_user ON memories(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_mem_embed ON memories USING ivfflat (embedding vector_l2_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_mem_hash ON memories(user_id, (meta->>'hash'))`,
	}
}

// EnsureSchema 创建扩展、表和索引。
func (s *PgvectorStore) EnsureSchema(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range schemaStatements(s.dim) {
			if err := tx.Exec(stmt).Error; err != nil {
				return apperr.Storage("store.pgvector.schema", err)
			}
		}
		return nil
	})
}

func (s *PgvectorStore) Write(ctx context.Context, userID string, kind models.Kind, content string, embedding []float32, meta map[string]interface{}) (*models.Memory, error) {
	const op = "store.pgvector.write"
	if err := checkDim(op, s.dim, embedding); err != nil {
		return nil, err
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}

	row := memoryRow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      string(kind),
		Content:   content,
		Embedding: pgvector.NewVector(embedding),
		Meta:      datatypes.JSONMap(meta),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, apperr.Storage(op, err)
	}
	return &models.Memory{
		ID:        row.ID,
		UserID:    userID,
		Kind:      kind,
		Content:   content,
		Embedding: embedding,
		Meta:      meta,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *PgvectorStore) Search(ctx context.Context, userID string, query []float32, k int, maxDistance float64) ([]models.Recall, error) {
	const op = "store.pgvector.search"
	if k <= 0 {
		return nil, nil
	}
	if err := checkDim(op, s.dim, query); err != nil {
		return nil, err
	}

	var rows []recallRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT content, meta, embedding <-> ? AS distance
		 FROM memories
		 WHERE user_id = ?
		 ORDER BY distance ASC
		 LIMIT ?`,
		pgvector.NewVector(query), userID, k,
	).Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	hits := make([]models.Recall, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, models.Recall{Content: r.Content, Meta: map[string]interface{}(r.Meta), Distance: r.Distance})
	}
	return rankRecalls(hits, k, maxDistance), nil
}

func (s *PgvectorStore) HasHash(ctx context.Context, userID, hash string) (bool, error) {
	var exists bool
	err := s.db.WithContext(ctx).Raw(
		`SELECT EXISTS(SELECT 1 FROM memories WHERE user_id = ? AND meta->>'hash' = ?)`,
		userID, hash,
	).Scan(&exists).Error
	if err != nil {
		return false, apperr.Storage("store.pgvector.has_hash", err)
	}
	return exists, nil
}

func (s *PgvectorStore) Close() error {
	return postgres.Close()
}
