package service

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"rentalsearch/internal/cache"
	"rentalsearch/internal/metrics"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const opEmbedding = "embedding"

// EmbedderConfig configures the embeddings endpoint.
type EmbedderConfig struct {
	LLM        LLMConfig
	Model      string
	Dimensions int // 0 leaves the model default
}

// OpenAIEmbedder vectorizes text with an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	cfg        EmbedderConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates an embedder
func NewOpenAIEmbedder(cfg EmbedderConfig, logger *zap.Logger) *OpenAIEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIEmbedder{
		cfg:        cfg,
		httpClient: newHTTPClient(cfg.LLM.Timeout),
		logger:     logger,
	}
}

// Model returns the embedding model name.
func (e *OpenAIEmbedder) Model() string {
	return e.cfg.Model
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, apiKey, text string) ([]float32, error) {
	if apiKey == "" {
		return nil, ErrNoCredential
	}

	start := time.Now()
	vec, err := e.embed(ctx, apiKey, text)
	metrics.LLMRequestDuration.WithLabelValues(opEmbedding).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(opEmbedding, "error").Inc()
		return nil, err
	}
	metrics.LLMRequestsTotal.WithLabelValues(opEmbedding, "success").Inc()
	return vec, nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, apiKey, text string) ([]float32, error) {
	client := newOpenAIClient(apiKey, e.cfg.LLM, e.httpClient)

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(e.cfg.Model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.cfg.Dimensions > 0 {
		req.Dimensions = e.cfg.Dimensions
	}

	resp, err := client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, describeAPIError("embeddings", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return resp.Data[0].Embedding, nil
}

// byteStore is the subset of cache.RedisStore the CachedEmbedder uses.
type byteStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder memoizes embeddings by model and text. Cache failures are logged and
// otherwise ignored; only the wrapped embedder can fail a call.
type CachedEmbedder struct {
	inner     Embedder
	store     byteStore
	namespace string
	logger    *zap.Logger
}

// NewCachedEmbedder wraps inner. namespace should identify the embedding model so that
// switching models never serves stale vectors.
func NewCachedEmbedder(inner Embedder, store byteStore, namespace string, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{inner: inner, store: store, namespace: namespace, logger: logger}
}

// Embed implements Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, apiKey, text string) ([]float32, error) {
	key := c.key(text)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		vec, decErr := decodeVector(raw)
		if decErr == nil {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			return vec, nil
		}
		c.logger.Warn("discarding corrupt cached embedding", zap.String("key", key), zap.Error(decErr))
	case !errors.Is(err, cache.ErrKeyNotFound):
		c.logger.Warn("embedding cache read failed", zap.Error(err))
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	vec, err := c.inner.Embed(ctx, apiKey, text)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, encodeVector(vec)); err != nil {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
	}
	return vec, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.namespace + ":" + hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid encoded vector length %d", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
