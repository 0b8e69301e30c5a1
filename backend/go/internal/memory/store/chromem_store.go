package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore 是进程内的向量存储，每个用户一个 collection。
// 距离为余弦距离 1 - similarity。
type ChromemStore struct {
	db  *chromem.DB
	dim int
	now func() time.Time

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	hashes      map[string]map[string]struct{}
}

// NewChromemStore 创建存储。dim 为 0 时不校验维度。
func NewChromemStore(dim int) *ChromemStore {
	return &ChromemStore{
		db:          chromem.NewDB(),
		dim:         dim,
		now:         time.Now,
		collections: make(map[string]*chromem.Collection),
		hashes:      make(map[string]map[string]struct{}),
	}
}

func (s *ChromemStore) lookup(userID string) *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections[userID]
}

func (s *ChromemStore) getOrCreate(userID string) (*chromem.Collection, error) {
	if col := s.lookup(userID); col != nil {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[userID]; ok {
		return col, nil
	}
	// embedding 总是由调用方提供，不需要 embedding func
	col, err := s.db.CreateCollection("user_"+userID, nil, nil)
	if err != nil {
		return nil, err
	}
	s.collections[userID] = col
	return col, nil
}

func (s *ChromemStore) Write(ctx context.Context, userID string, kind models.Kind, content string, embedding []float32, meta map[string]interface{}) (*models.Memory, error) {
	const op = "store.chromem.write"
	if err := checkDim(op, s.dim, embedding); err != nil {
		return nil, err
	}
	metaJSON, err := encodeMeta(meta)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	col, err := s.getOrCreate(userID)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}

	mem := &models.Memory{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Content:   content,
		Embedding: append([]float32(nil), embedding...),
		Meta:      meta,
		CreatedAt: s.now().UTC(),
	}
	doc := chromem.Document{
		ID:      mem.ID,
		Content: content,
		// chromem 会原地归一化，传一份拷贝
		Embedding: append([]float32(nil), embedding...),
		Metadata: map[string]string{
			"kind":       string(kind),
			"meta":       metaJSON,
			"created_at": mem.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return nil, apperr.Storage(op, err)
	}

	if h := hashOf(meta); h != "" {
		s.mu.Lock()
		if s.hashes[userID] == nil {
			s.hashes[userID] = make(map[string]struct{})
		}
		s.hashes[userID][h] = struct{}{}
		s.mu.Unlock()
	}
	return mem, nil
}

func (s *ChromemStore) Search(ctx context.Context, userID string, query []float32, k int, maxDistance float64) ([]models.Recall, error) {
	const op = "store.chromem.search"
	if k <= 0 {
		return nil, nil
	}
	if err := checkDim(op, s.dim, query); err != nil {
		return nil, err
	}
	col := s.lookup(userID)
	if col == nil {
		return nil, nil
	}
	// chromem 要求 nResults 不超过文档数
	n := k
	if count := col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, apperr.Storage(op, fmt.Errorf("query: %w", err))
	}

	hits := make([]models.Recall, 0, len(results))
	for _, r := range results {
		dist := 1 - float64(r.Similarity)
		if dist < 0 {
			dist = 0
		}
		hits = append(hits, models.Recall{
			Content:  r.Content,
			Meta:     decodeMeta(r.Metadata["meta"]),
			Distance: dist,
		})
	}
	return rankRecalls(hits, k, maxDistance), nil
}

func (s *ChromemStore) HasHash(_ context.Context, userID, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hashes[userID][hash]
	return ok, nil
}

func (s *ChromemStore) Close() error { return nil }
