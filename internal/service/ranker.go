package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"rentalsearch/internal/model"
	"rentalsearch/internal/utils"
)

// Match reason constants
const (
	ReasonSemantic    = "semantic match"
	ReasonFeatured    = "featured"
	ReasonBedrooms    = "bedrooms match"
	ReasonBathrooms   = "bathrooms match"
	ReasonMinPrice    = "meets minimum price"
	ReasonMaxPrice    = "within budget"
	ReasonPetFriendly = "pet friendly"
	reasonTermFormat  = "matches %q"
	reasonAmenityFmt  = "has %s"
	reasonKeywordFmt  = "mentions %q"
)

// Score adjustments applied on top of the base similarity.
const (
	BoostBedrooms    = 0.2
	BoostBathrooms   = 0.15
	BoostPriceBound  = 0.1
	BoostAmenity     = 0.15
	BoostPetFriendly = 0.25
	BoostKeyword     = 0.08

	featuredBonus = 0.5
	// enhancedMinScore drops weak enhanced-lexical candidates.
	enhancedMinScore = 0.1
	maxSimilarity    = 1.0

	minTokenRuneLength = 3
)

// Ranker scores candidates for the three search strategies. It is stateless.
type Ranker struct{}

// NewRanker creates a new ranker
func NewRanker() *Ranker {
	return &Ranker{}
}

// Tokenize lowercases the query, splits on whitespace and keeps tokens longer than two characters.
func Tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRuneLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Rerank adjusts vector-similarity matches by how well each listing satisfies the intent,
// clamps to 1.0, sorts and truncates to limit.
func (r *Ranker) Rerank(matches []model.ScoredMatch, intent *model.AnalyzedIntent, limit int) []model.ScoredMatch {
	out := make([]model.ScoredMatch, 0, len(matches))
	for _, m := range matches {
		if m.IsSold() {
			continue
		}
		reasons := []string{ReasonSemantic}
		score := m.Similarity

		if intent != nil {
			if intent.Bedrooms != nil && m.Bedrooms == *intent.Bedrooms {
				score += BoostBedrooms
				reasons = append(reasons, ReasonBedrooms)
			}

			boost, why := intentBoosts(&m.Listing, intent)
			score += boost
			reasons = append(reasons, why...)

			text := m.Title + " " + m.Description
			for _, kw := range intent.Keywords {
				if utils.ContainsFold(text, kw) {
					score += BoostKeyword
					reasons = append(reasons, fmt.Sprintf(reasonKeywordFmt, kw))
				}
			}
		}

		m.Similarity = clamp(score)
		m.MatchReasons = reasons
		out = append(out, m)
	}
	return rankAndTrim(out, limit)
}

// EnhancedLexical scores intent-filtered candidates by query tokens and intent keywords,
// normalizes by token count plus two, then applies intent boosts. Candidates scoring
// 0.1 or less are dropped.
func (r *Ranker) EnhancedLexical(query string, intent *model.AnalyzedIntent, listings []model.Listing, limit int) []model.ScoredMatch {
	tokens := Tokenize(query)
	out := make([]model.ScoredMatch, 0, len(listings))

	for i := range listings {
		l := &listings[i]
		if l.IsSold() {
			continue
		}
		raw, reasons := lexicalScore(tokens, l)

		if intent != nil {
			text := l.Title + " " + l.Description
			for _, kw := range intent.Keywords {
				if utils.ContainsFold(text, kw) {
					raw++
					reasons = append(reasons, fmt.Sprintf(reasonKeywordFmt, kw))
				}
			}
		}

		score := raw / float64(len(tokens)+2)
		if intent != nil {
			boost, why := intentBoosts(l, intent)
			score += boost
			reasons = append(reasons, why...)
		}

		score = clamp(score)
		if score <= enhancedMinScore {
			continue
		}
		out = append(out, model.ScoredMatch{Listing: *l, Similarity: score, MatchReasons: reasons})
	}
	return rankAndTrim(out, limit)
}

// PlainLexical scores by the fraction of query tokens found in the listing text, plus the
// featured bonus. With no usable tokens the raw score is kept. Zero scores are dropped.
func (r *Ranker) PlainLexical(query string, listings []model.Listing, limit int) []model.ScoredMatch {
	tokens := Tokenize(query)
	out := make([]model.ScoredMatch, 0, len(listings))

	for i := range listings {
		l := &listings[i]
		if l.IsSold() {
			continue
		}
		score, reasons := lexicalScore(tokens, l)
		if len(tokens) > 0 {
			score /= float64(len(tokens))
		}
		if score <= 0 {
			continue
		}
		out = append(out, model.ScoredMatch{Listing: *l, Similarity: score, MatchReasons: reasons})
	}
	return rankAndTrim(out, limit)
}

// lexicalScore counts the tokens present in the listing haystack and adds the featured bonus.
func lexicalScore(tokens []string, l *model.Listing) (float64, []string) {
	hay := haystack(l)
	score := 0.0
	reasons := []string{}
	for _, tok := range tokens {
		if strings.Contains(hay, tok) {
			score++
			reasons = append(reasons, fmt.Sprintf(reasonTermFormat, tok))
		}
	}
	if l.Featured {
		score += featuredBonus
		reasons = append(reasons, ReasonFeatured)
	}
	return score, reasons
}

func haystack(l *model.Listing) string {
	return strings.ToLower(strings.Join([]string{
		l.Title,
		l.Description,
		l.Location,
		strings.Join(l.Amenities, " "),
	}, " "))
}

// intentBoosts covers the adjustments shared by the semantic and enhanced-lexical paths:
// bathrooms, price bounds, amenities and pets.
func intentBoosts(l *model.Listing, intent *model.AnalyzedIntent) (float64, []string) {
	boost := 0.0
	var reasons []string

	if intent.Bathrooms != nil && l.Bathrooms >= *intent.Bathrooms {
		boost += BoostBathrooms
		reasons = append(reasons, ReasonBathrooms)
	}

	if pr := intent.PriceRange; pr != nil {
		if pr.Min != nil && l.Price >= *pr.Min {
			boost += BoostPriceBound
			reasons = append(reasons, ReasonMinPrice)
		}
		if pr.Max != nil && l.Price <= *pr.Max {
			boost += BoostPriceBound
			reasons = append(reasons, ReasonMaxPrice)
		}
	}

	for _, want := range intent.Amenities {
		for _, have := range l.Amenities {
			if utils.AmenityMatches(have, want) {
				boost += BoostAmenity
				reasons = append(reasons, fmt.Sprintf(reasonAmenityFmt, want))
				break
			}
		}
	}

	if intent.WantsPets() && utils.HasPetAmenity(l.Amenities) {
		boost += BoostPetFriendly
		reasons = append(reasons, ReasonPetFriendly)
	}

	return boost, reasons
}

func clamp(score float64) float64 {
	if score > maxSimilarity {
		return maxSimilarity
	}
	return score
}

// rankAndTrim sorts by similarity descending, keeping input order for ties, and
// truncates to limit.
func rankAndTrim(matches []model.ScoredMatch, limit int) []model.ScoredMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if limit >= 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
