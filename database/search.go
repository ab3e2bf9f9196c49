package database

import (
	"fmt"
	"strings"
)

// SearchQueryParser turns the bare words of a filter into a PostgreSQL
// tsquery. Words are sanitized, lowercased and joined with AND.
type SearchQueryParser struct {
	minLength int
	maxLength int
}

// NewSearchQueryParser creates a SearchQueryParser with default limits.
// Default: minimum 2 characters, maximum 1000 characters.
func NewSearchQueryParser() *SearchQueryParser {
	return &SearchQueryParser{
		minLength: 2,
		maxLength: 1000,
	}
}

// Parse converts a space separated word list to tsquery format.
// Performs the following transformations:
//  1. Trims whitespace
//  2. Validates length (min 2, max 1000 chars)
//  3. Removes characters with tsquery meaning (quotes, parentheses, operators)
//  4. Splits into words
//  5. Filters out single-character words
//  6. Converts to lowercase
//  7. Joins with " & " (AND operator)
//
// Examples:
//
//	"Web Servers" → "web & servers"
//	"a dmz b" → "dmz"
//
// Returns error if query is too short, too long, or becomes empty after filtering.
func (p *SearchQueryParser) Parse(query string) (string, error) {
	query = strings.TrimSpace(query)

	if len(query) < p.minLength {
		return "", fmt.Errorf("search words must be at least %d characters", p.minLength)
	}

	if len(query) > p.maxLength {
		return "", fmt.Errorf("search words too long (max %d characters)", p.maxLength)
	}

	query = p.sanitize(query)

	words := strings.Fields(query)
	if len(words) == 0 {
		return "", fmt.Errorf("search words are empty")
	}

	validWords := p.filterValidWords(words)
	if len(validWords) == 0 {
		return "", fmt.Errorf("no valid search words")
	}

	return strings.Join(validWords, " & "), nil
}

func (p *SearchQueryParser) sanitize(query string) string {
	replacements := map[string]string{
		`"`: "",
		"'": "",
		"(": "",
		")": "",
		"&": " ",
		"|": " ",
		"!": " ",
		":": " ",
		"*": " ",
		"<": " ",
		">": " ",
		`\`: " ",
	}

	for old, new := range replacements {
		query = strings.ReplaceAll(query, old, new)
	}

	return query
}

func (p *SearchQueryParser) filterValidWords(words []string) []string {
	valid := []string{}
	for _, word := range words {
		if len(word) >= 2 {
			valid = append(valid, strings.ToLower(word))
		}
	}
	return valid
}
