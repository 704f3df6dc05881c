package repository

import (
	"errors"
	"fmt"
	"strings"

	"rentalsearch/internal/model"
)

var (
	// ErrUnknownField is returned for filter or order fields outside the listing schema.
	ErrUnknownField = errors.New("unknown listing field")
	// ErrUnsupportedOperator is returned when an operator does not apply to the field.
	ErrUnsupportedOperator = errors.New("unsupported filter operator")
)

// listingColumns is the listing projection. Nullable columns are coalesced so that a
// single incomplete row cannot fail a whole scan.
const listingColumns = `id,
	COALESCE(title, '') AS title,
	COALESCE(description, '') AS description,
	COALESCE(location, '') AS location,
	COALESCE(price, 0) AS price,
	COALESCE(bedrooms, 0) AS bedrooms,
	COALESCE(bathrooms, 0) AS bathrooms,
	COALESCE(amenities, '{}') AS amenities,
	COALESCE(images, '{}') AS images,
	COALESCE(status, '') AS status,
	COALESCE(featured, false) AS featured,
	COALESCE(created_at, 'epoch'::timestamptz) AS created_at`

// vectorSimilarityQuery reads from the match_listings database function.
const vectorSimilarityQuery = `SELECT ` + listingColumns + `,
	COALESCE(similarity, 0) AS similarity
	FROM match_listings($1, $2, $3, $4)`

type fieldKind int

const (
	kindText fieldKind = iota
	kindNumber
	kindBool
	kindTime
	kindTextArray
)

// filterableFields maps API field names to SQL expressions. Only these may appear in a query.
var filterableFields = map[string]struct {
	expr string
	kind fieldKind
}{
	"status":      {"status", kindText},
	"title":       {"title", kindText},
	"location":    {"location", kindText},
	"description": {"description", kindText},
	"bedrooms":    {"bedrooms", kindNumber},
	"bathrooms":   {"bathrooms", kindNumber},
	"price":       {"price", kindNumber},
	"featured":    {"featured", kindBool},
	"created_at":  {"created_at", kindTime},
	"amenities":   {"array_to_string(amenities, ',')", kindTextArray},
}

// buildListingQuery turns a ListingQuery into SQL with positional arguments.
func buildListingQuery(q model.ListingQuery) (string, []any, error) {
	whereClauses := []string{}
	args := []any{}
	argIndex := 1

	if !q.IncludeSold {
		whereClauses = append(whereClauses, fmt.Sprintf("status IS DISTINCT FROM $%d", argIndex))
		args = append(args, model.StatusSold)
		argIndex++
	}

	for _, f := range q.Filters {
		field, ok := filterableFields[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q", ErrUnknownField, f.Field)
		}

		var op string
		value := f.Value
		switch f.Op {
		case model.OpEq:
			op = "="
		case model.OpNeq:
			op = "IS DISTINCT FROM"
		case model.OpGte:
			op = ">="
		case model.OpLte:
			op = "<="
		case model.OpILike:
			if field.kind != kindText && field.kind != kindTextArray {
				return "", nil, fmt.Errorf("%w: ilike on %q", ErrUnsupportedOperator, f.Field)
			}
			op = "ILIKE"
			value = "%" + fmt.Sprint(f.Value) + "%"
		default:
			return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedOperator, f.Op)
		}

		if (f.Op == model.OpGte || f.Op == model.OpLte) && field.kind != kindNumber && field.kind != kindTime {
			return "", nil, fmt.Errorf("%w: %s on %q", ErrUnsupportedOperator, f.Op, f.Field)
		}

		whereClauses = append(whereClauses, fmt.Sprintf("%s %s $%d", field.expr, op, argIndex))
		args = append(args, value)
		argIndex++
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(listingColumns)
	sb.WriteString(" FROM listings")
	if len(whereClauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(whereClauses, " AND "))
	}

	if len(q.OrderBy) > 0 {
		orders := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			field, ok := filterableFields[o.Field]
			if !ok || field.kind == kindTextArray {
				return "", nil, fmt.Errorf("%w: cannot order by %q", ErrUnknownField, o.Field)
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC NULLS LAST"
			}
			orders = append(orders, field.expr+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
		args = append(args, q.Limit)
	}

	return sb.String(), args, nil
}
