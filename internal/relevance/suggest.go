package relevance

import (
	"strings"

	"github.com/utafrali/storefront-search/internal/domain"
)

// MaxSuggestions caps the number of suggestions returned by Suggest.
const MaxSuggestions = 5

// Suggest returns up to MaxSuggestions distinct product names, categories,
// and tags containing query, in the order they are first seen while scanning
// products.
func Suggest(products []domain.Product, query string) []string {
	if strings.TrimSpace(query) == "" {
		return []string{}
	}

	q := strings.ToLower(query)
	set := newOrderedSet()
	for i := range products {
		p := &products[i]
		if strings.Contains(strings.ToLower(p.Name), q) {
			set.add(p.Name)
		}
		if strings.Contains(strings.ToLower(p.Category), q) {
			set.add(p.Category)
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				set.add(tag)
			}
		}
	}

	return set.first(MaxSuggestions)
}

// orderedSet is a string set that remembers insertion order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) first(n int) []string {
	if len(s.items) < n {
		n = len(s.items)
	}
	out := make([]string, n)
	copy(out, s.items[:n])
	return out
}
