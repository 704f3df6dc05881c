package model

import (
	"time"

	"github.com/lib/pq"
)

// StatusSold marks listings that must never appear in search results.
const StatusSold = "sold"

// Listing represents a rental listing as read from the listings table
type Listing struct {
	ID          string         `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	Location    string         `json:"location" db:"location"`
	Price       float64        `json:"price" db:"price"`
	Bedrooms    int            `json:"bedrooms" db:"bedrooms"`
	Bathrooms   int            `json:"bathrooms" db:"bathrooms"`
	Amenities   pq.StringArray `json:"amenities" db:"amenities"`
	Images      pq.StringArray `json:"images" db:"images"`
	Status      string         `json:"status" db:"status"`
	Featured    bool           `json:"featured" db:"featured"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// IsSold reports whether the listing is excluded from search.
func (l *Listing) IsSold() bool {
	return l.Status == StatusSold
}

// ScoredMatch is a listing ranked for one search call
type ScoredMatch struct {
	Listing
	Similarity   float64  `json:"similarity" db:"similarity"`
	MatchReasons []string `json:"match_reasons" db:"-"`
}

// EmbeddingItem represents a single embedding with listing info
type EmbeddingItem struct {
	ListingID string    `json:"listing_id" binding:"required"`
	Embedding []float32 `json:"embedding" binding:"required"`
	Text      string    `json:"text,omitempty"` // The text used to generate embedding
}
