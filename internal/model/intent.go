package model

// PriceRange is an optional budget. Min <= Max when both are set.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// AnalyzedIntent represents structured search criteria extracted from a free-text query.
// Every field is optional; a nil field means the query did not mention it.
type AnalyzedIntent struct {
	Bedrooms     *int        `json:"bedrooms,omitempty"`
	Bathrooms    *int        `json:"bathrooms,omitempty"`
	PriceRange   *PriceRange `json:"priceRange,omitempty"`
	Amenities    []string    `json:"amenities,omitempty"` // lowercase
	PropertyType *string     `json:"propertyType,omitempty"`
	PetFriendly  *bool       `json:"petFriendly,omitempty"`
	Keywords     []string    `json:"keywords,omitempty"`
	Location     *string     `json:"location,omitempty"`
}

// WantsPets reports whether the intent explicitly asks for a pet-friendly listing.
func (a *AnalyzedIntent) WantsPets() bool {
	return a != nil && a.PetFriendly != nil && *a.PetFriendly
}
