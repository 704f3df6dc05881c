package service

import (
	"context"
	"sync"

	"rentalsearch/internal/model"
)

type vectorCall struct {
	threshold float64
	count     int
	offset    int
}

// fakeStore serves canned listings and records every call.
type fakeStore struct {
	mu sync.Mutex

	listings      []model.Listing
	vectorMatches []model.ScoredMatch
	queryErrs     []error // consumed one per QueryListings call
	vectorErr     error
	panicOnQuery  bool

	queries     []model.ListingQuery
	vectorCalls []vectorCall
}

func (f *fakeStore) QueryListings(_ context.Context, q model.ListingQuery) ([]model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnQuery {
		panic("boom")
	}
	call := len(f.queries)
	f.queries = append(f.queries, q)
	if call < len(f.queryErrs) && f.queryErrs[call] != nil {
		return nil, f.queryErrs[call]
	}
	out := make([]model.Listing, len(f.listings))
	copy(out, f.listings)
	return out, nil
}

func (f *fakeStore) VectorSimilarity(_ context.Context, _ []float32, threshold float64, count, offset int) ([]model.ScoredMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectorCalls = append(f.vectorCalls, vectorCall{threshold: threshold, count: count, offset: offset})
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	out := make([]model.ScoredMatch, len(f.vectorMatches))
	copy(out, f.vectorMatches)
	return out, nil
}

func (f *fakeStore) GetListingByID(_ context.Context, id string) (*model.Listing, error) {
	for i := range f.listings {
		if f.listings[i].ID == id {
			l := f.listings[i]
			return &l, nil
		}
	}
	return nil, nil
}

type spyIntent struct {
	mu     sync.Mutex
	calls  int
	models []string
	result *model.AnalyzedIntent
}

func (s *spyIntent) Analyze(_ context.Context, _, chatModel, _ string) *model.AnalyzedIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.models = append(s.models, chatModel)
	return s.result
}

type spyEmbedder struct {
	mu    sync.Mutex
	calls int
	texts []string
	vec   []float32
	err   error
}

func (s *spyEmbedder) Embed(_ context.Context, _, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.texts = append(s.texts, text)
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func ptr[T any](v T) *T { return &v }
