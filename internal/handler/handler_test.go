package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"rentalsearch/internal/model"
	"rentalsearch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubSearcher struct {
	gotQuery string
	gotOpts  *model.SearchOptions
	result   *model.SearchResult
	listing  *model.Listing
	err      error
	gotID    string
}

func (s *stubSearcher) Search(_ context.Context, query string, opts *model.SearchOptions) *model.SearchResult {
	s.gotQuery = query
	s.gotOpts = opts
	return s.result
}

func (s *stubSearcher) GetListing(_ context.Context, id string) (*model.Listing, error) {
	s.gotID = id
	return s.listing, s.err
}

type stubIndexer struct {
	items    []model.EmbeddingItem
	limit    int
	resp     *model.EmbeddingBatchResponse
	err      error
	backfill bool
}

func (s *stubIndexer) UpdateEmbeddings(_ context.Context, items []model.EmbeddingItem) *model.EmbeddingBatchResponse {
	s.items = items
	return s.resp
}

func (s *stubIndexer) Backfill(_ context.Context, limit int) (*model.EmbeddingBatchResponse, error) {
	s.backfill = true
	s.limit = limit
	return s.resp, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(s *stubSearcher, ix *stubIndexer, db Pinger) *gin.Engine {
	return NewRouter(RouterDeps{
		Search:    NewSearchHandler(s),
		Embedding: NewEmbeddingHandler(ix),
		Health:    NewHealthHandler(db, BuildInfo{Version: "1.2.3", GitCommit: "abc"}),
		CORS:      CORSConfig{AllowOrigins: []string{"*"}},
	})
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSearchHandler_Search(t *testing.T) {
	s := &stubSearcher{result: &model.SearchResult{
		Matches:     []model.ScoredMatch{{Listing: model.Listing{ID: "1", Title: "Loft"}, Similarity: 0.8}},
		SearchQuery: "loft",
		Strategy:    "plain_lexical",
	}}
	r := newTestRouter(s, &stubIndexer{}, nil)

	w := do(r, http.MethodPost, "/api/v1/search",
		`{"query":"loft","options":{"limit":5,"minSimilarity":0.5,"useSemanticSearch":true,"analyzeIntent":true}}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "loft", s.gotQuery)
	require.NotNil(t, s.gotOpts)
	assert.Equal(t, 5, s.gotOpts.Limit)
	assert.InDelta(t, 0.5, *s.gotOpts.MinSimilarity, 1e-9)
	assert.True(t, s.gotOpts.UseSemanticSearch)
	assert.True(t, s.gotOpts.AnalyzeIntent)

	var got model.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Matches, 1)
	assert.Equal(t, "Loft", got.Matches[0].Title)
	assert.Equal(t, "plain_lexical", got.Strategy)
}

func TestSearchHandler_SearchRejectsBadRequests(t *testing.T) {
	r := newTestRouter(&stubSearcher{}, &stubIndexer{}, nil)

	tests := map[string]string{
		"missing query":  `{"options":{"limit":5}}`,
		"unknown option": `{"query":"loft","options":{"topK":5}}`,
		"malformed":      `{"query":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/search", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSearchHandler_SearchTerminalFailure(t *testing.T) {
	s := &stubSearcher{result: &model.SearchResult{
		Matches:     []model.ScoredMatch{},
		SearchQuery: "loft",
		Error:       "query listings: connection refused",
	}}
	r := newTestRouter(s, &stubIndexer{}, nil)

	w := do(r, http.MethodPost, "/api/v1/search", `{"query":"loft"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), `"matches":[]`)
}

func TestSearchHandler_GetListing(t *testing.T) {
	id := "3f1c2a9e-8b7d-4c6e-9f0a-1b2c3d4e5f60"

	t.Run("found", func(t *testing.T) {
		s := &stubSearcher{listing: &model.Listing{ID: id, Title: "Loft"}}
		w := do(newTestRouter(s, &stubIndexer{}, nil), http.MethodGet, "/api/v1/listings/"+id, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, id, s.gotID)
		assert.Contains(t, w.Body.String(), `"title":"Loft"`)
	})

	t.Run("not found", func(t *testing.T) {
		w := do(newTestRouter(&stubSearcher{}, &stubIndexer{}, nil), http.MethodGet, "/api/v1/listings/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		s := &stubSearcher{}
		w := do(newTestRouter(s, &stubIndexer{}, nil), http.MethodGet, "/api/v1/listings/42", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, s.gotID)
	})

	t.Run("store error", func(t *testing.T) {
		s := &stubSearcher{err: errors.New("db down")}
		w := do(newTestRouter(s, &stubIndexer{}, nil), http.MethodGet, "/api/v1/listings/"+id, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestEmbeddingHandler_BatchUpdate(t *testing.T) {
	ix := &stubIndexer{resp: &model.EmbeddingBatchResponse{Success: 1}}
	r := newTestRouter(&stubSearcher{}, ix, nil)

	w := do(r, http.MethodPost, "/api/v1/embeddings/batch",
		`{"embeddings":[{"listing_id":"a","embedding":[0.1,0.2]}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ix.items, 1)
	assert.Equal(t, "a", ix.items[0].ListingID)

	ix.resp = &model.EmbeddingBatchResponse{Success: 0, Failed: 1, Errors: []string{"listing a: not found"}}
	w = do(r, http.MethodPost, "/api/v1/embeddings/batch",
		`{"embeddings":[{"listing_id":"a","embedding":[0.1,0.2]}]}`)
	assert.Equal(t, http.StatusPartialContent, w.Code)

	w = do(r, http.MethodPost, "/api/v1/embeddings/batch", `{"embeddings":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmbeddingHandler_Backfill(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		ix := &stubIndexer{resp: &model.EmbeddingBatchResponse{Success: 3}}
		w := do(newTestRouter(&stubSearcher{}, ix, nil), http.MethodPost, "/api/v1/embeddings/backfill", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, defaultBackfillLimit, ix.limit)
	})

	t.Run("capped limit", func(t *testing.T) {
		ix := &stubIndexer{resp: &model.EmbeddingBatchResponse{}}
		do(newTestRouter(&stubSearcher{}, ix, nil), http.MethodPost, "/api/v1/embeddings/backfill?limit=5000", "")
		assert.Equal(t, maxBackfillLimit, ix.limit)
	})

	t.Run("invalid limit", func(t *testing.T) {
		ix := &stubIndexer{}
		w := do(newTestRouter(&stubSearcher{}, ix, nil), http.MethodPost, "/api/v1/embeddings/backfill?limit=-1", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, ix.backfill)
	})

	t.Run("not configured", func(t *testing.T) {
		ix := &stubIndexer{err: service.ErrNoCredential}
		w := do(newTestRouter(&stubSearcher{}, ix, nil), http.MethodPost, "/api/v1/embeddings/backfill", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	w := do(newTestRouter(&stubSearcher{}, &stubIndexer{}, stubPinger{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = do(newTestRouter(&stubSearcher{}, &stubIndexer{}, stubPinger{err: errors.New("down")}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(newTestRouter(&stubSearcher{}, &stubIndexer{}, nil), http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"1.2.3"`)
}

func TestMetricsRoute(t *testing.T) {
	w := do(newTestRouter(&stubSearcher{}, &stubIndexer{}, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
