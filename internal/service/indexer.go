package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"rentalsearch/internal/model"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// IndexerConfig tunes embedding maintenance.
type IndexerConfig struct {
	Dimensions        int     // expected vector length; 0 disables the check
	Concurrency       int     // parallel embedding requests during backfill
	RequestsPerSecond float64 // 0 means unthrottled
}

// Indexer keeps listing embeddings populated so the semantic strategy has vectors to match.
type Indexer struct {
	store    EmbeddingStore
	embedder Embedder
	creds    CredentialSource
	cfg      IndexerConfig
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewIndexer creates an indexer. embedder may be nil when no language model is configured;
// Backfill then fails with ErrNoCredential.
func NewIndexer(store EmbeddingStore, embedder Embedder, creds CredentialSource, cfg IndexerConfig, logger *zap.Logger) *Indexer {
	if creds == nil {
		creds = StaticCredentials("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	ix := &Indexer{
		store:    store,
		embedder: embedder,
		creds:    creds,
		cfg:      cfg,
		logger:   logger,
	}
	if cfg.RequestsPerSecond > 0 {
		ix.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Concurrency)
	}
	return ix
}

// EmbeddingText is the text a listing is embedded from.
func EmbeddingText(l *model.Listing) string {
	parts := []string{l.Title, l.Description, l.Location}
	if len(l.Amenities) > 0 {
		parts = append(parts, "Amenities: "+strings.Join(l.Amenities, ", "))
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

// UpdateEmbeddings stores precomputed embeddings. Items with the wrong dimension are
// rejected individually.
func (ix *Indexer) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) *model.EmbeddingBatchResponse {
	resp := &model.EmbeddingBatchResponse{}
	valid := make([]model.EmbeddingItem, 0, len(items))
	for _, item := range items {
		if err := ix.checkItem(item); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, err.Error())
			continue
		}
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		return resp
	}

	success, errs := ix.store.BatchUpdateEmbeddings(ctx, valid)
	resp.Success = success
	resp.Failed += len(valid) - success
	resp.Errors = append(resp.Errors, errs...)
	return resp
}

// Backfill embeds up to limit listings that have no embedding yet.
func (ix *Indexer) Backfill(ctx context.Context, limit int) (*model.EmbeddingBatchResponse, error) {
	if ix.embedder == nil {
		return nil, ErrNoCredential
	}
	apiKey, err := ix.creds.APIKey(ctx)
	if err != nil {
		return nil, err
	}

	listings, err := ix.store.ListingsMissingEmbedding(ctx, limit)
	if err != nil {
		return nil, err
	}

	results, err := ix.embedAll(ctx, apiKey, listings)
	if err != nil {
		return nil, err
	}

	resp := &model.EmbeddingBatchResponse{}
	items := make([]model.EmbeddingItem, 0, len(listings))
	for i, r := range results {
		if r.err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("listing %s: %v", listings[i].ID, r.err))
			continue
		}
		items = append(items, r.item)
	}

	if len(items) > 0 {
		batch := ix.UpdateEmbeddings(ctx, items)
		resp.Success = batch.Success
		resp.Failed += batch.Failed
		resp.Errors = append(resp.Errors, batch.Errors...)
	}

	ix.logger.Info("embedding backfill finished",
		zap.Int("candidates", len(listings)),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed))
	return resp, nil
}

type embedResult struct {
	item model.EmbeddingItem
	err  error
}

// embedAll embeds every listing on a bounded worker pool. Results keep the input order.
func (ix *Indexer) embedAll(ctx context.Context, apiKey string, listings []model.Listing) ([]embedResult, error) {
	pool, err := ants.NewPool(ix.cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	results := make([]embedResult, len(listings))
	var wg sync.WaitGroup
	for i := range listings {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = ix.embedOne(ctx, apiKey, &listings[i])
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			results[i] = embedResult{err: fmt.Errorf("submit: %w", err)}
		}
	}
	wg.Wait()
	return results, nil
}

func (ix *Indexer) embedOne(ctx context.Context, apiKey string, l *model.Listing) embedResult {
	if ix.limiter != nil {
		if err := ix.limiter.Wait(ctx); err != nil {
			return embedResult{err: err}
		}
	}
	text := EmbeddingText(l)
	vec, err := ix.embedder.Embed(ctx, apiKey, text)
	if err != nil {
		return embedResult{err: err}
	}
	return embedResult{item: model.EmbeddingItem{ListingID: l.ID, Embedding: vec, Text: text}}
}

func (ix *Indexer) checkItem(item model.EmbeddingItem) error {
	if item.ListingID == "" {
		return fmt.Errorf("missing listing_id")
	}
	if len(item.Embedding) == 0 {
		return fmt.Errorf("listing %s: empty embedding", item.ListingID)
	}
	if ix.cfg.Dimensions > 0 && len(item.Embedding) != ix.cfg.Dimensions {
		return fmt.Errorf("listing %s: embedding has %d dimensions, expected %d",
			item.ListingID, len(item.Embedding), ix.cfg.Dimensions)
	}
	return nil
}
