package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"rentalsearch/internal/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func embeddingServer(t *testing.T, status int, vectors [][]float32, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
			return
		}
		data := make([]map[string]any, 0, len(vectors))
		for i, v := range vectors {
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": v})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data":   data,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(t *testing.T, baseURL string) *OpenAIEmbedder {
	t.Helper()
	return NewOpenAIEmbedder(EmbedderConfig{
		LLM:        LLMConfig{BaseURL: baseURL + "/v1", Timeout: 5 * time.Second},
		Model:      "text-embedding-3-small",
		Dimensions: 3,
	}, zaptest.NewLogger(t))
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var body map[string]any
	srv := embeddingServer(t, http.StatusOK, [][]float32{{0.25, -0.5, 1}}, &body)

	vec, err := newTestEmbedder(t, srv.URL).Embed(context.Background(), "sk-test", "sunny loft")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)

	assert.Equal(t, "text-embedding-3-small", body["model"])
	assert.Equal(t, []any{"sunny loft"}, body["input"])
	assert.EqualValues(t, 3, body["dimensions"])
}

func TestOpenAIEmbedder_Errors(t *testing.T) {
	t.Run("no credential", func(t *testing.T) {
		_, err := newTestEmbedder(t, "http://127.0.0.1:1").Embed(context.Background(), "", "x")
		assert.ErrorIs(t, err, ErrNoCredential)
	})

	t.Run("upstream error", func(t *testing.T) {
		srv := embeddingServer(t, http.StatusServiceUnavailable, nil, nil)
		_, err := newTestEmbedder(t, srv.URL).Embed(context.Background(), "sk-test", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("empty data", func(t *testing.T) {
		srv := embeddingServer(t, http.StatusOK, nil, nil)
		_, err := newTestEmbedder(t, srv.URL).Embed(context.Background(), "sk-test", "x")
		assert.ErrorIs(t, err, ErrEmptyEmbedding)
	})
}

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func TestCachedEmbedder(t *testing.T) {
	t.Run("second call is served from cache", func(t *testing.T) {
		inner := &spyEmbedder{vec: []float32{0.1, 0.2, 0.3}}
		store := newMemStore()
		c := NewCachedEmbedder(inner, store, "text-embedding-3-small", zaptest.NewLogger(t))

		first, err := c.Embed(context.Background(), "sk-test", "loft")
		require.NoError(t, err)
		second, err := c.Embed(context.Background(), "sk-test", "loft")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, inner.calls)
		require.Len(t, store.data, 1)
		for key := range store.data {
			assert.Regexp(t, `^emb:text-embedding-3-small:[0-9a-f]{64}$`, key)
		}
	})

	t.Run("namespaces do not collide", func(t *testing.T) {
		store := newMemStore()
		a := NewCachedEmbedder(&spyEmbedder{vec: []float32{1}}, store, "model-a", nil)
		b := NewCachedEmbedder(&spyEmbedder{vec: []float32{2}}, store, "model-b", nil)

		va, _ := a.Embed(context.Background(), "k", "same text")
		vb, _ := b.Embed(context.Background(), "k", "same text")
		assert.NotEqual(t, va, vb)
		assert.Len(t, store.data, 2)
	})

	t.Run("cache failures are ignored", func(t *testing.T) {
		inner := &spyEmbedder{vec: []float32{0.5}}
		store := newMemStore()
		store.getErr = errors.New("redis down")
		store.setErr = errors.New("redis down")
		c := NewCachedEmbedder(inner, store, "m", zaptest.NewLogger(t))

		vec, err := c.Embed(context.Background(), "k", "loft")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5}, vec)
	})

	t.Run("corrupt entry is replaced", func(t *testing.T) {
		inner := &spyEmbedder{vec: []float32{0.5}}
		store := newMemStore()
		c := NewCachedEmbedder(inner, store, "m", zaptest.NewLogger(t))
		store.data[c.key("loft")] = []byte{1, 2, 3}

		vec, err := c.Embed(context.Background(), "k", "loft")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5}, vec)
		assert.Equal(t, encodeVector([]float32{0.5}), store.data[c.key("loft")])
	})

	t.Run("inner failure is not cached", func(t *testing.T) {
		inner := &spyEmbedder{err: errors.New("timeout")}
		store := newMemStore()
		c := NewCachedEmbedder(inner, store, "m", nil)

		_, err := c.Embed(context.Background(), "k", "loft")
		assert.Error(t, err)
		assert.Empty(t, store.data)
	})
}

func TestVectorEncoding(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2})
	assert.Error(t, err)
}
