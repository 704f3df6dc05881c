package model

// FilterOp is a comparison understood by the listing store.
type FilterOp string

// Supported filter operators.
const (
	OpEq    FilterOp = "eq"
	OpNeq   FilterOp = "neq"
	OpGte   FilterOp = "gte"
	OpLte   FilterOp = "lte"
	OpILike FilterOp = "ilike" // case-insensitive substring
)

// Filter is a single column predicate.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Order is one sort key.
type Order struct {
	Field string
	Desc  bool
}

// ListingQuery describes a filtered, ordered, limited read against the listing store.
// Sold listings are excluded unless IncludeSold is set.
type ListingQuery struct {
	Filters     []Filter
	OrderBy     []Order
	Limit       int
	IncludeSold bool
}

// Eq builds an equality filter.
func Eq(field string, v any) Filter { return Filter{Field: field, Op: OpEq, Value: v} }

// Neq builds an inequality filter.
func Neq(field string, v any) Filter { return Filter{Field: field, Op: OpNeq, Value: v} }

// Gte builds a lower-bound filter.
func Gte(field string, v any) Filter { return Filter{Field: field, Op: OpGte, Value: v} }

// Lte builds an upper-bound filter.
func Lte(field string, v any) Filter { return Filter{Field: field, Op: OpLte, Value: v} }

// ILike builds a substring filter.
func ILike(field, substr string) Filter { return Filter{Field: field, Op: OpILike, Value: substr} }
