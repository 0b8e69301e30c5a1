package store

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/database/milvus"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const milvusFlushInterval = 5 * time.Second

// MilvusStore 把所有用户的记忆放在同一个集合里，检索时用 user_id 表达式过滤。
type MilvusStore struct {
	client *milvus.MilvusClient
	dim    int
	now    func() time.Time
}

// NewMilvusStore creates a new MilvusStore.
func NewMilvusStore(client *milvus.MilvusClient, dim int) *MilvusStore {
	return &MilvusStore{client: client, dim: dim, now: time.Now}
}

func (s *MilvusStore) Write(ctx context.Context, userID string, kind models.Kind, content string, embedding []float32, meta map[string]interface{}) (*models.Memory, error) {
	const op = "store.milvus.write"
	if err := checkDim(op, s.dim, embedding); err != nil {
		return nil, err
	}
	metaJSON, err := encodeMeta(meta)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	mem := &models.Memory{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Content:   content,
		Embedding: embedding,
		Meta:      meta,
		CreatedAt: s.now().UTC(),
	}
	err = s.client.Insert(ctx,
		entity.NewColumnVarChar("id", []string{mem.ID}),
		entity.NewColumnVarChar("user_id", []string{userID}),
		entity.NewColumnVarChar("kind", []string{string(kind)}),
		entity.NewColumnVarChar("content", []string{content}),
		entity.NewColumnVarChar("content_hash", []string{hashOf(meta)}),
		entity.NewColumnVarChar("meta", []string{metaJSON}),
		entity.NewColumnInt64("created_at", []int64{mem.CreatedAt.UnixMilli()}),
		entity.NewColumnFloatVector("embedding", len(embedding), [][]float32{embedding}),
	)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	return mem, nil
}

func (s *MilvusStore) Search(ctx context.Context, userID string, query []float32, k int, maxDistance float64) ([]models.Recall, error) {
	const op = "store.milvus.search"
	if k <= 0 {
		return nil, nil
	}
	if err := checkDim(op, s.dim, query); err != nil {
		return nil, err
	}

	results, err := s.client.Search(ctx, userExpr(userID), []string{"content", "meta"}, query, k)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	var hits []models.Recall
	for _, r := range results {
		if r.Err != nil {
			return nil, apperr.Storage(op, r.Err)
		}
		contentCol := r.Fields.GetColumn("content")
		metaCol := r.Fields.GetColumn("meta")
		if contentCol == nil {
			return nil, apperr.Storage(op, fmt.Errorf("content field missing from search result"))
		}
		for i := 0; i < r.ResultCount; i++ {
			content, err := contentCol.GetAsString(i)
			if err != nil {
				return nil, apperr.Storage(op, err)
			}
			var meta map[string]interface{}
			if metaCol != nil {
				if raw, err := metaCol.GetAsString(i); err == nil {
					meta = decodeMeta(raw)
				}
			}
			hits = append(hits, models.Recall{
				Content:  content,
				Meta:     meta,
				Distance: l2FromScore(r.Scores[i]),
			})
		}
	}
	return rankRecalls(hits, k, maxDistance), nil
}

func (s *MilvusStore) HasHash(ctx context.Context, userID, hash string) (bool, error) {
	expr := fmt.Sprintf("%s && content_hash == %s", userExpr(userID), strconv.Quote(hash))
	rs, err := s.client.Query(ctx, expr, []string{"id"}, 1)
	if err != nil {
		return false, apperr.Storage("store.milvus.has_hash", err)
	}
	col := rs.GetColumn("id")
	return col != nil && col.Len() > 0, nil
}

func (s *MilvusStore) Close() error {
	return s.client.Close()
}

func userExpr(userID string) string {
	return "user_id == " + strconv.Quote(userID)
}

// Milvus 的 L2 分数是距离的平方
func l2FromScore(score float32) float64 {
	if score <= 0 {
		return 0
	}
	return math.Sqrt(float64(score))
}
