package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyInput is returned when there is nothing to parse.
var ErrEmptyInput = errors.New("empty input")

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	fencedAnyRe     = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)(\w+)(\s*:)`)
	controlCharsRe  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON extracts and parses JSON from model output that may contain:
// - Pure JSON
// - JSON wrapped in markdown code blocks (```json ... ```)
// - JSON with surrounding text
// - Trailing commas, unquoted keys or single-quoted values
func ParseAIJSON(input string, target any) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return ErrEmptyInput
	}

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	candidates := []string{
		extractFromMarkdown(input),
		extractJSONFromText(input),
		cleanAndFixJSON(input),
	}
	if extracted := extractJSONFromText(input); extracted != "" {
		candidates = append(candidates, cleanAndFixJSON(extracted))
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to parse JSON from input: %s", truncateString(input, 100))
}

// extractFromMarkdown extracts JSON from markdown code blocks
func extractFromMarkdown(input string) string {
	if matches := fencedJSONRe.FindStringSubmatch(input); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if matches := fencedAnyRe.FindStringSubmatch(input); len(matches) > 1 {
		content := strings.TrimSpace(matches[1])
		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			return content
		}
	}

	return ""
}

// extractJSONFromText finds the first balanced JSON object or array in surrounding text
func extractJSONFromText(input string) string {
	if start := strings.Index(input, "{"); start >= 0 {
		if extracted := extractBalanced(input[start:], '{', '}'); extracted != "" {
			return extracted
		}
	}

	if start := strings.Index(input, "["); start >= 0 {
		if extracted := extractBalanced(input[start:], '[', ']'); extracted != "" {
			return extracted
		}
	}

	return ""
}

// extractBalanced returns the prefix of input up to the matching close delimiter,
// ignoring delimiters inside string literals.
func extractBalanced(input string, open, close rune) string {
	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}

		switch {
		case ch == '\\':
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			if depth == 0 {
				start = i
			}
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}

	return ""
}

// cleanAndFixJSON attempts to fix common formatting mistakes in model output
func cleanAndFixJSON(input string) string {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "\ufeff")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = fixSingleQuotes(s)
	s = controlCharsRe.ReplaceAllString(s, "")
	return s
}

// fixSingleQuotes converts single-quoted JSON strings to double-quoted ones.
// Apostrophes inside words are left alone.
func fixSingleQuotes(input string) string {
	var result strings.Builder
	inDouble := false
	inSingle := false
	escape := false
	var prev rune

	for _, ch := range input {
		switch {
		case escape:
			escape = false
			result.WriteRune(ch)
		case ch == '\\':
			escape = true
			result.WriteRune(ch)
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			result.WriteRune(ch)
		case ch == '\'' && !inDouble && !inSingle && strings.ContainsRune(":,[{ ", prev):
			inSingle = true
			result.WriteRune('"')
		case ch == '\'' && inSingle:
			inSingle = false
			result.WriteRune('"')
		default:
			result.WriteRune(ch)
		}
		if ch != ' ' {
			prev = ch
		}
	}

	return result.String()
}

// truncateString truncates a string to maxLen bytes
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
