package relevance

import (
	"regexp"
	"strings"

	"github.com/utafrali/storefront-search/internal/domain"
)

const (
	maxKeywords      = 5
	minKeywordLength = 3
)

var nonWord = regexp.MustCompile(`[^\w]+`)

// ExtractKeywords lower-cases term, splits it on non-word characters, and
// returns at most five words longer than two characters.
func ExtractKeywords(term string) []string {
	keywords := make([]string, 0, maxKeywords)
	for _, w := range nonWord.Split(strings.ToLower(term), -1) {
		if len(w) < minKeywordLength {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// MatchesKeywords reports whether any keyword occurs in the product's name,
// category, description, or tags.
func MatchesKeywords(p *domain.Product, keywords []string) bool {
	fields := make([]string, 0, 3+len(p.Tags))
	fields = append(fields, p.Name, p.Category, p.Description)
	fields = append(fields, p.Tags...)
	text := strings.ToLower(strings.Join(fields, " "))

	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
