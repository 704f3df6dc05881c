package model

// Default search option values.
const (
	DefaultLimit         = 10
	DefaultMinSimilarity = 0.3
)

// SearchRequest represents a search query request
type SearchRequest struct {
	Query   string         `json:"query" binding:"required"`
	Options *SearchOptions `json:"options,omitempty"`
}

// SearchOptions represents the recognised search options
type SearchOptions struct {
	Model             string   `json:"model,omitempty"` // chat model override for intent analysis
	Limit             int      `json:"limit,omitempty"`
	Offset            int      `json:"offset,omitempty"`
	MinSimilarity     *float64 `json:"minSimilarity,omitempty"`
	UseSemanticSearch bool     `json:"useSemanticSearch,omitempty"`
	AnalyzeIntent     bool     `json:"analyzeIntent,omitempty"`
}

// SearchDefaults bounds option normalisation.
type SearchDefaults struct {
	Limit         int
	MaxLimit      int
	MinSimilarity float64
}

// Normalize returns a validated copy of the options. A nil receiver yields the defaults.
// Non-positive limits fall back to the default limit, limits above MaxLimit are capped,
// negative offsets become zero and MinSimilarity is clamped to [0,1].
func (o *SearchOptions) Normalize(d SearchDefaults) SearchOptions {
	if d.Limit <= 0 {
		d.Limit = DefaultLimit
	}
	if d.MinSimilarity < 0 || d.MinSimilarity > 1 {
		d.MinSimilarity = DefaultMinSimilarity
	}

	var out SearchOptions
	if o != nil {
		out = *o
	}

	if out.Limit <= 0 {
		out.Limit = d.Limit
	}
	if d.MaxLimit > 0 && out.Limit > d.MaxLimit {
		out.Limit = d.MaxLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}

	sim := d.MinSimilarity
	if out.MinSimilarity != nil {
		sim = *out.MinSimilarity
	}
	switch {
	case sim < 0:
		sim = 0
	case sim > 1:
		sim = 1
	}
	out.MinSimilarity = &sim

	return out
}

// Threshold returns MinSimilarity, or the default when unset.
func (o *SearchOptions) Threshold() float64 {
	if o == nil || o.MinSimilarity == nil {
		return DefaultMinSimilarity
	}
	return *o.MinSimilarity
}

// SearchResult is the output of one search call.
// Matches are sorted by similarity descending and never longer than the requested limit.
type SearchResult struct {
	Matches       []ScoredMatch   `json:"matches"`
	SearchQuery   string          `json:"searchQuery"`
	Error         string          `json:"error,omitempty"`
	AnalyzedQuery *AnalyzedIntent `json:"analyzedQuery,omitempty"`
	Strategy      string          `json:"strategy,omitempty"` // cascade branch that produced Matches
	Took          int64           `json:"took_ms"`
}

// EmbeddingBatchRequest represents a batch embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
