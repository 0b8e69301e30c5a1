package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/extractor"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/queue"
	memoryservice "github.com/eegeren/cortexa-ai/backend/go/internal/memory/service"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/store"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) { return s.vec, s.err }

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, s.err
}

type recordingLLM struct {
	reply string
	err   error

	calls       int
	temperature float32
	messages    []models.Message
}

func (r *recordingLLM) Complete(_ context.Context, messages []models.Message, temperature float32) (string, error) {
	r.calls++
	r.messages = messages
	r.temperature = temperature
	return r.reply, r.err
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []models.MemoryJob
	err  error
}

func (q *recordingQueue) Submit(_ context.Context, job models.MemoryJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Stats() queue.Stats { return queue.Stats{} }
func (q *recordingQueue) Close() error       { return nil }

// brokenStore 的检索总是失败。
type brokenStore struct{ *store.ChromemStore }

func (brokenStore) Search(context.Context, string, []float32, int, float64) ([]models.Recall, error) {
	return nil, apperr.Storage("test", errors.New("connection refused"))
}

var chatOpts = Options{RecallTopK: 8, RecallMaxDistance: 0.8, Temperature: 0.3}

func seeded(t *testing.T) *store.ChromemStore {
	t.Helper()
	st := store.NewChromemStore(3)
	ctx := context.Background()
	_, err := st.Write(ctx, "u1", models.KindProfile, "Kullanıcının adı Yusuf.", []float32{1, 0, 0}, nil)
	require.NoError(t, err)
	_, err = st.Write(ctx, "u1", models.KindPreference, "Kahveyi sütsüz içer.", []float32{0, 1, 0}, nil)
	require.NoError(t, err)
	_, err = st.Write(ctx, "u2", models.KindProfile, "Kullanıcının adı Ayşe.", []float32{1, 0, 0}, nil)
	require.NoError(t, err)
	return st
}

func TestBuildSystemPrompt(t *testing.T) {
	assert.Equal(t,
		"You are Cortexa. If relevant, use the user's stored context.\nUser context:\n- (no memory)",
		BuildSystemPrompt(nil))
	assert.Equal(t,
		"You are Cortexa. If relevant, use the user's stored context.\nUser context:\n- a\n- b",
		BuildSystemPrompt([]string{"a", "b"}))
}

func TestCompleteUsesRecalledMemories(t *testing.T) {
	llm := &recordingLLM{reply: "Merhaba Yusuf!"}
	q := &recordingQueue{}
	svc := NewChatService(&stubEmbedder{vec: []float32{1, 0, 0}}, seeded(t), llm, q, chatOpts, nil)

	ctx := logger.ContextWithTrace(context.Background(), "trace-1")
	reply, err := svc.Complete(ctx, models.Identity{ID: "u1"}, "Adımı hatırlıyor musun?")
	require.NoError(t, err)

	assert.Equal(t, "Merhaba Yusuf!", reply.Reply)
	// 咖啡那条距离为 1，超过阈值；u2 的记忆不可见
	assert.Equal(t, []string{"Kullanıcının adı Yusuf."}, reply.MemoriesUsed)

	require.Len(t, llm.messages, 2)
	assert.Equal(t, models.RoleSystem, llm.messages[0].Role)
	assert.Contains(t, llm.messages[0].Content, "User context:\n- Kullanıcının adı Yusuf.")
	assert.Equal(t, "Adımı hatırlıyor musun?", llm.messages[1].Content)
	assert.InDelta(t, 0.3, llm.temperature, 1e-6)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, "u1", q.jobs[0].UserID)
	assert.Equal(t, "Adımı hatırlıyor musun?", q.jobs[0].Message)
	assert.Equal(t, "trace-1", q.jobs[0].TraceID)
}

func TestCompleteWithoutMemories(t *testing.T) {
	llm := &recordingLLM{reply: "ok"}
	svc := NewChatService(&stubEmbedder{vec: []float32{1, 0, 0}}, store.NewChromemStore(3), llm, &recordingQueue{}, chatOpts, nil)

	reply, err := svc.Complete(context.Background(), models.Identity{ID: "new"}, "selam")
	require.NoError(t, err)
	assert.NotNil(t, reply.MemoriesUsed)
	assert.Empty(t, reply.MemoriesUsed)
	assert.Contains(t, llm.messages[0].Content, "- (no memory)")
}

func TestCompleteRejectsEmptyMessage(t *testing.T) {
	llm := &recordingLLM{reply: "ok"}
	svc := NewChatService(&stubEmbedder{vec: []float32{1, 0, 0}}, store.NewChromemStore(3), llm, &recordingQueue{}, chatOpts, nil)

	_, err := svc.Complete(context.Background(), models.Identity{ID: "u1"}, "  \n\t")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Equal(t, 0, llm.calls)
}

func TestCompleteEmbedFailureIsFatal(t *testing.T) {
	llm := &recordingLLM{reply: "ok"}
	q := &recordingQueue{}
	emb := &stubEmbedder{err: apperr.Upstream("embedding", errors.New("503"))}
	svc := NewChatService(emb, seeded(t), llm, q, chatOpts, nil)

	_, err := svc.Complete(context.Background(), models.Identity{ID: "u1"}, "merhaba")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.Equal(t, 0, llm.calls)
	assert.Empty(t, q.jobs)
}

func TestCompleteSearchFailureDegrades(t *testing.T) {
	llm := &recordingLLM{reply: "ok"}
	q := &recordingQueue{}
	svc := NewChatService(&stubEmbedder{vec: []float32{1, 0, 0}}, brokenStore{store.NewChromemStore(3)}, llm, q, chatOpts, nil)

	reply, err := svc.Complete(context.Background(), models.Identity{ID: "u1"}, "merhaba")
	require.NoError(t, err)
	assert.Empty(t, reply.MemoriesUsed)
	assert.Contains(t, llm.messages[0].Content, "- (no memory)")
	assert.Len(t, q.jobs, 1)
}

func TestCompleteLLMFailureIsFatal(t *testing.T) {
	q := &recordingQueue{}
	llm := &recordingLLM{err: apperr.Configuration("llm.openai", errors.New("OPENAI_API_KEY is not set"))}
	svc := NewChatService(&stubEmbedder{vec: []float32{1, 0, 0}}, seeded(t), llm, q, chatOpts, nil)

	_, err := svc.Complete(context.Background(), models.Identity{ID: "u1"}, "merhaba")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Empty(t, q.jobs)
}

func TestCompleteQueueFailureKeepsReply(t *testing.T) {
	q := &recordingQueue{err: queue.ErrQueueFull}
	svc := NewChatService(&stubEmbedder{vec: []float32{1, 0, 0}}, seeded(t), &recordingLLM{reply: "ok"}, q, chatOpts, nil)

	reply, err := svc.Complete(context.Background(), models.Identity{ID: "u1"}, "merhaba")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Reply)
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string) ([]models.CandidateFact, error) {
	return nil, errors.New("extractor crashed")
}

func TestBackgroundFailureKeepsReplyAndWritesNothing(t *testing.T) {
	st := store.NewChromemStore(3)
	emb := &stubEmbedder{vec: []float32{1, 0, 0}}
	mem := memoryservice.NewMemoryService(failingExtractor{}, emb, st, nil, memoryservice.Options{MinScore: 0.55, MinContentLength: 10}, nil)
	pool := queue.NewWorkerPool(mem.Handle, queue.PoolOptions{Workers: 1, Buffer: 4})

	svc := NewChatService(emb, st, &recordingLLM{reply: "Memnun oldum!"}, pool, chatOpts, nil)
	reply, err := svc.Complete(context.Background(), models.Identity{ID: "u1"}, "Benim adım Yusuf, 28 yaşındayım.")
	require.NoError(t, err)
	assert.Equal(t, "Memnun oldum!", reply.Reply)

	require.NoError(t, pool.Close())
	assert.Equal(t, uint64(1), pool.Stats().Failed)

	hits, err := st.Search(context.Background(), "u1", []float32{1, 0, 0}, 8, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRememberedFactsAreRecalledNextTurn(t *testing.T) {
	st := store.NewChromemStore(3)
	emb := &stubEmbedder{vec: []float32{1, 0, 0}}
	mem := memoryservice.NewMemoryService(extractor.NewFactExtractor(nil, nil, nil), emb, st, nil,
		memoryservice.Options{MinScore: 0.55, MinContentLength: 10}, nil)
	pool := queue.NewWorkerPool(mem.Handle, queue.PoolOptions{Workers: 2, Buffer: 4})

	llm := &recordingLLM{reply: "ok"}
	svc := NewChatService(emb, st, llm, pool, chatOpts, nil)

	first, err := svc.Complete(context.Background(), models.Identity{ID: "u1"}, "Benim adım Yusuf, 28 yaşındayım.")
	require.NoError(t, err)
	assert.Empty(t, first.MemoriesUsed)

	// 等后台任务写完
	require.NoError(t, pool.Close())
	assert.Equal(t, uint64(1), pool.Stats().Succeeded)

	svc = NewChatService(emb, st, llm, &recordingQueue{}, chatOpts, nil)
	second, err := svc.Complete(context.Background(), models.Identity{ID: "u1"}, "Ben kimim?")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Kullanıcının adı Yusuf.", "Kullanıcı 28 yaşında."}, second.MemoriesUsed)
}
