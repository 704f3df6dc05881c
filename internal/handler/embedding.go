package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"rentalsearch/internal/model"
	"rentalsearch/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	defaultBackfillLimit = 100
	maxBackfillLimit     = 1000
)

// Indexer is the embedding maintenance surface of service.Indexer.
type Indexer interface {
	UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) *model.EmbeddingBatchResponse
	Backfill(ctx context.Context, limit int) (*model.EmbeddingBatchResponse, error)
}

// EmbeddingHandler handles embedding-related HTTP requests
type EmbeddingHandler struct {
	indexer Indexer
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(indexer Indexer) *EmbeddingHandler {
	return &EmbeddingHandler{indexer: indexer}
}

// BatchUpdate handles POST /api/v1/embeddings/batch
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Embeddings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No embeddings provided"})
		return
	}

	respond(c, h.indexer.UpdateEmbeddings(c.Request.Context(), req.Embeddings))
}

// Backfill handles POST /api/v1/embeddings/backfill?limit=N
func (h *EmbeddingHandler) Backfill(c *gin.Context) {
	limit := defaultBackfillLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxBackfillLimit)
	}

	resp, err := h.indexer.Backfill(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrNoCredential) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Embedding model is not configured"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Backfill failed: " + err.Error()})
		return
	}

	respond(c, resp)
}

func respond(c *gin.Context, resp *model.EmbeddingBatchResponse) {
	if len(resp.Errors) > 0 {
		c.JSON(http.StatusPartialContent, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
