package service

import (
	"context"
	"errors"

	"rentalsearch/internal/model"
)

var (
	// ErrNoCredential means no language-model API key is configured.
	ErrNoCredential = errors.New("no language model credential configured")
	// ErrEmptyEmbedding means the embeddings endpoint answered without a vector.
	ErrEmptyEmbedding = errors.New("empty embedding response")
)

// ListingStore is the read contract the search cascade needs from the datastore.
type ListingStore interface {
	QueryListings(ctx context.Context, q model.ListingQuery) ([]model.Listing, error)
	VectorSimilarity(ctx context.Context, embedding []float32, threshold float64, count, offset int) ([]model.ScoredMatch, error)
	GetListingByID(ctx context.Context, id string) (*model.Listing, error)
}

// EmbeddingStore is the write contract used by the Indexer.
type EmbeddingStore interface {
	ListingsMissingEmbedding(ctx context.Context, limit int) ([]model.Listing, error)
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
}

// IntentAnalyzer turns free text into structured criteria. Implementations fail soft:
// any failure yields nil.
type IntentAnalyzer interface {
	Analyze(ctx context.Context, apiKey, chatModel, text string) *model.AnalyzedIntent
}

// Embedder vectorizes text. Unlike IntentAnalyzer it reports failures to the caller.
type Embedder interface {
	Embed(ctx context.Context, apiKey, text string) ([]float32, error)
}

// CredentialSource supplies the language-model API key for one call.
type CredentialSource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticCredentials serves a fixed key from configuration. An empty key means unavailable.
type StaticCredentials string

// APIKey implements CredentialSource.
func (c StaticCredentials) APIKey(_ context.Context) (string, error) {
	if c == "" {
		return "", ErrNoCredential
	}
	return string(c), nil
}
