package service

import (
	"context"
	"fmt"

	"rentalsearch/internal/model"
)

// Strategy names reported in SearchResult.Strategy and metrics.
const (
	StrategySemantic        = "semantic"
	StrategyEnhancedLexical = "enhanced_lexical"
	StrategyPlainLexical    = "plain_lexical"
)

// searchState is what one Search call hands to each strategy.
type searchState struct {
	query  string
	opts   model.SearchOptions
	apiKey string
	intent *model.AnalyzedIntent
}

// strategy is one step of the cascade. An error means "fall through to the next step".
type strategy interface {
	name() string
	run(ctx context.Context, st *searchState) ([]model.ScoredMatch, error)
}

// recentFirst is the candidate order for both lexical strategies.
var recentFirst = []model.Order{
	{Field: "featured", Desc: true},
	{Field: "created_at", Desc: true},
}

type semanticStrategy struct {
	store    ListingStore
	embedder Embedder
	ranker   *Ranker
}

func (s *semanticStrategy) name() string { return StrategySemantic }

// run over-fetches twice the limit so that reranking has room to reorder.
func (s *semanticStrategy) run(ctx context.Context, st *searchState) ([]model.ScoredMatch, error) {
	vec, err := s.embedder.Embed(ctx, st.apiKey, st.query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) == 0 {
		return nil, ErrEmptyEmbedding
	}

	raw, err := s.store.VectorSimilarity(ctx, vec, st.opts.Threshold(), 2*st.opts.Limit, st.opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("vector similarity: %w", err)
	}
	return s.ranker.Rerank(raw, st.intent, st.opts.Limit), nil
}

type enhancedLexicalStrategy struct {
	store    ListingStore
	ranker   *Ranker
	poolSize int
}

func (s *enhancedLexicalStrategy) name() string { return StrategyEnhancedLexical }

func (s *enhancedLexicalStrategy) run(ctx context.Context, st *searchState) ([]model.ScoredMatch, error) {
	listings, err := s.store.QueryListings(ctx, model.ListingQuery{
		Filters: intentFilters(st.intent),
		OrderBy: recentFirst,
		Limit:   s.poolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	return s.ranker.EnhancedLexical(st.query, st.intent, listings, st.opts.Limit), nil
}

type plainLexicalStrategy struct {
	store    ListingStore
	ranker   *Ranker
	poolSize int
}

func (s *plainLexicalStrategy) name() string { return StrategyPlainLexical }

func (s *plainLexicalStrategy) run(ctx context.Context, st *searchState) ([]model.ScoredMatch, error) {
	listings, err := s.store.QueryListings(ctx, model.ListingQuery{
		OrderBy: recentFirst,
		Limit:   s.poolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	return s.ranker.PlainLexical(st.query, listings, st.opts.Limit), nil
}

// intentFilters pushes the structured criteria down to the datastore.
func intentFilters(intent *model.AnalyzedIntent) []model.Filter {
	if intent == nil {
		return nil
	}
	var filters []model.Filter
	if intent.Bedrooms != nil {
		filters = append(filters, model.Eq("bedrooms", *intent.Bedrooms))
	}
	if intent.Bathrooms != nil {
		filters = append(filters, model.Gte("bathrooms", *intent.Bathrooms))
	}
	if pr := intent.PriceRange; pr != nil {
		if pr.Min != nil {
			filters = append(filters, model.Gte("price", *pr.Min))
		}
		if pr.Max != nil {
			filters = append(filters, model.Lte("price", *pr.Max))
		}
	}
	return filters
}
