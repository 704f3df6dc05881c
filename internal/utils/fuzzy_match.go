package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// AmenityVocabulary is the closed set of amenity names the alias table resolves to.
var AmenityVocabulary = []string{
	"pool",
	"gym",
	"parking",
	"balcony",
	"garden",
	"security",
	"elevator",
	"air conditioning",
	"heating",
	"laundry",
	"dishwasher",
	"wifi",
	"furnished",
}

// PetWords are the trigger words that mark a listing or query as pet-related.
var PetWords = []string{"pet", "pets", "dog", "cat"}

// amenityAliases maps common phrasings onto AmenityVocabulary entries.
var amenityAliases = map[string][]string{
	"pool":             {"swimming pool", "pool", "lap pool"},
	"gym":              {"gym", "gymnasium", "fitness", "fitness center", "fitness centre"},
	"parking":          {"parking", "car park", "garage", "carport", "parking spot"},
	"balcony":          {"balcony", "terrace", "patio", "deck"},
	"garden":           {"garden", "yard", "backyard", "lawn"},
	"security":         {"security", "24-hour security", "24hr security", "doorman", "concierge", "gated"},
	"elevator":         {"elevator", "lift"},
	"air conditioning": {"air conditioning", "air conditioner", "aircon", "a/c", "central air"},
	"heating":          {"heating", "heater", "radiator", "central heating"},
	"laundry":          {"laundry", "washer", "washing machine", "dryer", "washer/dryer"},
	"dishwasher":       {"dishwasher"},
	"wifi":             {"wifi", "wi-fi", "internet", "broadband"},
	"furnished":        {"furnished", "fully furnished", "furniture"},
}

// negationPrefixes mark an amenity phrase as the absence of the amenity.
var negationPrefixes = []string{"no ", "non-", "non ", "not ", "without "}

// NormalizeAmenity lowercases and trims an amenity. The wording itself is kept; aliases
// are resolved at match time by AmenityMatches.
func NormalizeAmenity(amenity string) string {
	return strings.Join(strings.Fields(strings.ToLower(amenity)), " ")
}

// NormalizeAmenities normalises and de-duplicates a list, preserving first-seen order.
func NormalizeAmenities(amenities []string) []string {
	if len(amenities) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(amenities))
	out := make([]string, 0, len(amenities))
	for _, a := range amenities {
		n := NormalizeAmenity(a)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// CanonicalAmenity maps a phrase onto the vocabulary. Exact aliases win over aliases
// found as whole words inside the phrase; negated phrases ("unfurnished", "no parking")
// never map.
func CanonicalAmenity(amenity string) (string, bool) {
	a := NormalizeAmenity(amenity)
	if a == "" || IsNegatedAmenity(a) {
		return "", false
	}
	if c, ok := exactAlias(a); ok {
		return c, true
	}
	for _, canonical := range AmenityVocabulary {
		for _, alias := range amenityAliases[canonical] {
			if containsWord(a, alias) {
				return canonical, true
			}
		}
	}
	return "", false
}

// IsNegatedAmenity reports whether the phrase describes the absence of an amenity.
func IsNegatedAmenity(amenity string) bool {
	a := NormalizeAmenity(amenity)
	for _, p := range negationPrefixes {
		if strings.HasPrefix(a, p) {
			return true
		}
	}
	first, _, _ := strings.Cut(a, " ")
	if rest, ok := strings.CutPrefix(first, "un"); ok && rest != "" {
		_, known := exactAlias(rest)
		return known
	}
	return false
}

// AmenityMatches reports whether a listing amenity satisfies a wanted one. The wanted
// phrase matches as a case-insensitive substring, or through the alias table when both
// sides map to the same vocabulary entry. A negated listing amenity only satisfies a
// negated request.
func AmenityMatches(have, want string) bool {
	h, w := NormalizeAmenity(have), NormalizeAmenity(want)
	if h == "" || w == "" {
		return false
	}
	if IsNegatedAmenity(h) != IsNegatedAmenity(w) {
		return false
	}
	if strings.Contains(h, w) {
		return true
	}
	hc, ok := CanonicalAmenity(h)
	if !ok {
		return false
	}
	wc, ok := CanonicalAmenity(w)
	return ok && hc == wc
}

func exactAlias(a string) (string, bool) {
	for _, canonical := range AmenityVocabulary {
		for _, alias := range amenityAliases[canonical] {
			if a == alias {
				return canonical, true
			}
		}
	}
	return "", false
}

// containsWord reports whether word occurs in s bounded by non-alphanumeric runes.
func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		i = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// HasPetAmenity reports whether any amenity mentions a pet word.
func HasPetAmenity(amenities []string) bool {
	for _, a := range amenities {
		for _, w := range []string{"pet", "dog", "cat"} {
			if ContainsFold(a, w) {
				return true
			}
		}
	}
	return false
}
