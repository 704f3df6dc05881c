package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"rentalsearch/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// Searcher is the search surface of service.SearchService.
type Searcher interface {
	Search(ctx context.Context, query string, opts *model.SearchOptions) *model.SearchResult
	GetListing(ctx context.Context, id string) (*model.Listing, error)
}

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searcher Searcher
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := bindStrictJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result := h.searcher.Search(c.Request.Context(), req.Query, req.Options)

	// The terminal datastore failure is the only case reported as an error status.
	if result.Error != "" {
		c.JSON(http.StatusServiceUnavailable, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetListing handles GET /api/v1/listings/:id. Listing IDs are UUID primary keys.
func (h *SearchHandler) GetListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID"})
		return
	}

	listing, err := h.searcher.GetListing(c.Request.Context(), id.String())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get listing"})
		return
	}
	if listing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	c.JSON(http.StatusOK, listing)
}

// bindStrictJSON decodes the body rejecting unknown fields, then runs the binding validator.
func bindStrictJSON(c *gin.Context, v any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(v)
}
