package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentalsearch/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewFromDB wraps an existing connection.
func NewFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// QueryListings runs a filtered, ordered, limited read. Sold listings are excluded
// unless q.IncludeSold is set.
func (r *PostgresRepository) QueryListings(ctx context.Context, q model.ListingQuery) ([]model.Listing, error) {
	query, args, err := buildListingQuery(q)
	if err != nil {
		return nil, err
	}

	var listings []model.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}
	return listings, nil
}

// VectorSimilarity calls the match_listings database function, which returns non-sold
// listings whose embedding similarity to the query exceeds threshold, best first.
func (r *PostgresRepository) VectorSimilarity(
	ctx context.Context,
	embedding []float32,
	threshold float64,
	count, offset int,
) ([]model.ScoredMatch, error) {
	var matches []model.ScoredMatch
	err := r.db.SelectContext(ctx, &matches, vectorSimilarityQuery, pgvector.NewVector(embedding), threshold, count, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to run vector similarity: %w", err)
	}
	return matches, nil
}

// GetListingByID retrieves a single listing by its ID. Returns nil, nil when not found.
func (r *PostgresRepository) GetListingByID(ctx context.Context, id string) (*model.Listing, error) {
	var listing model.Listing
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	err := r.db.GetContext(ctx, &listing, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// ListingsMissingEmbedding returns non-sold listings that have no embedding yet, oldest first.
func (r *PostgresRepository) ListingsMissingEmbedding(ctx context.Context, limit int) ([]model.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE embedding IS NULL AND status IS DISTINCT FROM $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	var listings []model.Listing
	if err := r.db.SelectContext(ctx, &listings, query, model.StatusSold, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch listings without embedding: %w", err)
	}
	return listings, nil
}

// BatchUpdateEmbeddings updates embeddings for multiple listings in one transaction
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errs []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errs
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `UPDATE listings SET embedding = $1 WHERE id = $2`)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errs
	}
	defer stmt.Close()

	for _, item := range items {
		res, err := stmt.ExecContext(ctx, pgvector.NewVector(item.Embedding), item.ListingID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("listing %s: %v", item.ListingID, err))
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			errs = append(errs, fmt.Sprintf("listing %s: not found", item.ListingID))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errs
	}

	return success, errs
}
