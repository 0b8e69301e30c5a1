package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/eegeren/cortexa-ai/backend/go/internal/apperr"
	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOpenAIServer 模拟 OpenAI 兼容的 /embeddings 接口，返回固定维度的向量。
func newOpenAIServer(t *testing.T, dim int, status int, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]interface{}, 0, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dim)
			vec[0] = float32(i + 1)
			data = append(data, map[string]interface{}{"object": "embedding", "index": i, "embedding": vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func testConfig(baseURL string, dim int) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		Provider:  "openai",
		APIKey:    "sk-test",
		BaseURL:   baseURL,
		Model:     "text-embedding-3-small",
		Dimension: dim,
		Timeout:   "5s",
	}
}

func TestOpenAIEmbed(t *testing.T) {
	srv := newOpenAIServer(t, 4, http.StatusOK, nil)
	defer srv.Close()

	emb, err := NewEmdModel(context.Background(), testConfig(srv.URL, 4), config.CircuitBreakerConfig{}, logger.Discard())
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "Adım Yusuf")
	require.NoError(t, err)
	assert.Len(t, vec, 4)

	vecs, err := emb.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(2), vecs[1][0])
}

func TestDimensionMismatchIsUpstreamError(t *testing.T) {
	srv := newOpenAIServer(t, 3, http.StatusOK, nil)
	defer srv.Close()

	emb, err := NewEmdModel(context.Background(), testConfig(srv.URL, 1536), config.CircuitBreakerConfig{}, logger.Discard())
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestServerErrorIsUpstreamError(t *testing.T) {
	srv := newOpenAIServer(t, 4, http.StatusInternalServerError, nil)
	defer srv.Close()

	emb, err := NewEmdModel(context.Background(), testConfig(srv.URL, 4), config.CircuitBreakerConfig{}, logger.Discard())
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	cfg := testConfig("http://unused", 4)
	cfg.APIKey = ""

	emb, err := NewEmdModel(context.Background(), cfg, config.CircuitBreakerConfig{}, logger.Discard())
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.NotErrorIs(t, err, apperr.ErrUpstream)
}

func TestEmptyTextRejected(t *testing.T) {
	emb := WithDimension(unconfigured{op: "x", reason: "y"}, 4)
	_, err := emb.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestUnsupportedProvider(t *testing.T) {
	cfg := testConfig("", 4)
	cfg.Provider = "word2vec"
	_, err := NewEmdModel(context.Background(), cfg, config.CircuitBreakerConfig{}, logger.Discard())
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestCacheAvoidsRepeatedCalls(t *testing.T) {
	var hits int32
	srv := newOpenAIServer(t, 4, http.StatusOK, &hits)
	defer srv.Close()

	cfg := testConfig(srv.URL, 4)
	cfg.Cache = config.EmbeddingCacheConfig{Enabled: true, MaxItems: 100}

	emb, err := NewEmdModel(context.Background(), cfg, config.CircuitBreakerConfig{}, logger.Discard())
	require.NoError(t, err)
	cached, ok := emb.(*CachedEmbedding)
	require.True(t, ok)
	defer cached.Close()

	_, err = cached.Embed(context.Background(), "same text")
	require.NoError(t, err)
	cached.Wait()
	_, err = cached.Embed(context.Background(), "same text")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	vecs, err := cached.EmbedBatch(context.Background(), []string{"same text", "other text"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "only the uncached text goes upstream")
}

func TestHuggingFaceEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/mini", r.URL.Path)
		_, _ = w.Write([]byte(`[[0.1,0.2,0.3]]`))
	}))
	defer srv.Close()

	hf := NewHuggingFaceModel("hf-key", "mini", srv.URL+"/models/", nil)
	vec, err := hf.Embed(context.Background(), "merhaba")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestHuggingFaceNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	hf := NewHuggingFaceModel("hf-key", "mini", srv.URL+"/", nil)
	_, err := hf.Embed(context.Background(), "merhaba")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}
