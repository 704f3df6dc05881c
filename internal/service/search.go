package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentalsearch/internal/metrics"
	"rentalsearch/internal/model"

	"go.uber.org/zap"
)

// SearchConfig bounds the options accepted by Search.
type SearchConfig struct {
	Defaults          model.SearchDefaults
	CandidatePoolSize int
}

// SearchService runs the search cascade: semantic, then enhanced-lexical, then
// plain-lexical. It holds no per-call state and is safe for concurrent use.
type SearchService struct {
	store    ListingStore
	creds    CredentialSource
	intent   IntentAnalyzer
	embedder Embedder
	ranker   *Ranker
	cfg      SearchConfig
	logger   *zap.Logger
}

// NewSearchService creates a new search service. intent and embedder may be nil, in which
// case intent analysis and the semantic strategy are skipped.
func NewSearchService(
	store ListingStore,
	creds CredentialSource,
	intent IntentAnalyzer,
	embedder Embedder,
	cfg SearchConfig,
	logger *zap.Logger,
) *SearchService {
	if cfg.CandidatePoolSize <= 0 {
		cfg.CandidatePoolSize = 50
	}
	if creds == nil {
		creds = StaticCredentials("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{
		store:    store,
		creds:    creds,
		intent:   intent,
		embedder: embedder,
		ranker:   NewRanker(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Search never returns an error. The only failure it reports is a datastore error on the
// last strategy, in which case Matches is empty and Error is set.
func (s *SearchService) Search(ctx context.Context, query string, opts *model.SearchOptions) (result *model.SearchResult) {
	start := time.Now()
	result = &model.SearchResult{
		Matches:     []model.ScoredMatch{},
		SearchQuery: query,
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("search panicked", zap.String("query", query), zap.Any("panic", r))
			result.Matches = []model.ScoredMatch{}
			result.Error = fmt.Sprintf("internal error: %v", r)
		}
		result.Took = time.Since(start).Milliseconds()
		metrics.SearchDuration.WithLabelValues(strategyLabel(result.Strategy)).Observe(time.Since(start).Seconds())
	}()

	st := &searchState{query: query, opts: opts.Normalize(s.cfg.Defaults)}

	apiKey, err := s.creds.APIKey(ctx)
	if err != nil || apiKey == "" {
		if err != nil && !errors.Is(err, ErrNoCredential) {
			s.logger.Warn("credential lookup failed", zap.Error(err))
		}
		s.logger.Debug("no language model credential, using plain lexical search")
	} else {
		st.apiKey = apiKey
		if st.opts.AnalyzeIntent && s.intent != nil {
			st.intent = s.intent.Analyze(ctx, apiKey, st.opts.Model, query)
			result.AnalyzedQuery = st.intent
		}
	}

	cascade := s.cascade(st)
	for i, strat := range cascade {
		matches, err := runStrategy(ctx, strat, st)
		if err == nil {
			metrics.SearchStrategyTotal.WithLabelValues(strat.name(), "served").Inc()
			result.Matches = matches
			result.Strategy = strat.name()
			s.logger.Info("search served",
				zap.String("query", query),
				zap.String("strategy", strat.name()),
				zap.Int("matches", len(matches)),
				zap.Bool("intent", st.intent != nil))
			return result
		}

		if i == len(cascade)-1 {
			metrics.SearchStrategyTotal.WithLabelValues(strat.name(), "failed").Inc()
			result.Strategy = strat.name()
			result.Error = err.Error()
			s.logger.Error("search failed",
				zap.String("query", query),
				zap.String("strategy", strat.name()),
				zap.Error(err))
			return result
		}

		metrics.SearchStrategyTotal.WithLabelValues(strat.name(), "fallthrough").Inc()
		metrics.SearchFallbacksTotal.WithLabelValues(strat.name(), fallbackReason(err)).Inc()
		s.logger.Warn("search strategy fell through",
			zap.String("query", query),
			zap.String("strategy", strat.name()),
			zap.String("next", cascade[i+1].name()),
			zap.Error(err))
	}
	return result
}

// GetListing returns one listing by ID, or nil when it does not exist.
func (s *SearchService) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	return s.store.GetListingByID(ctx, id)
}

// cascade lists the strategies for one call, in the order they are tried.
func (s *SearchService) cascade(st *searchState) []strategy {
	plain := &plainLexicalStrategy{store: s.store, ranker: s.ranker, poolSize: s.cfg.CandidatePoolSize}
	if st.apiKey == "" {
		return []strategy{plain}
	}

	chain := make([]strategy, 0, 3)
	if st.opts.UseSemanticSearch && s.embedder != nil {
		chain = append(chain, &semanticStrategy{store: s.store, embedder: s.embedder, ranker: s.ranker})
	}
	chain = append(chain,
		&enhancedLexicalStrategy{store: s.store, ranker: s.ranker, poolSize: s.cfg.CandidatePoolSize},
		plain,
	)
	return chain
}

// runStrategy turns a panicking strategy into an ordinary fall-through.
func runStrategy(ctx context.Context, strat strategy, st *searchState) (matches []model.ScoredMatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			matches = nil
			err = fmt.Errorf("%s strategy panicked: %v", strat.name(), r)
		}
	}()
	matches, err = strat.run(ctx, st)
	if err == nil && matches == nil {
		matches = []model.ScoredMatch{}
	}
	return matches, err
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrEmptyEmbedding):
		return "empty_embedding"
	case errors.Is(err, ErrNoCredential):
		return "no_credential"
	default:
		return "error"
	}
}

func strategyLabel(name string) string {
	if name == "" {
		return "none"
	}
	return name
}
