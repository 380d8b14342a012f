package relevance

import (
	"cmp"
	"slices"
	"strings"

	"github.com/utafrali/storefront-search/internal/domain"
)

// Scored pairs a product with its relevance score.
type Scored struct {
	Product domain.Product
	Score   int
}

// RankScored scores every product for term, drops the ones scoring 0, and
// orders the rest by descending score. Equal scores keep their input order.
// A blank term returns every product with score 0 in input order.
func (s *Scorer) RankScored(products []domain.Product, term string) []Scored {
	if strings.TrimSpace(term) == "" {
		out := make([]Scored, len(products))
		for i := range products {
			out[i] = Scored{Product: products[i]}
		}
		return out
	}

	candidates := make([]Scored, 0, len(products))
	for i := range products {
		if score := s.Score(&products[i], term); score > 0 {
			candidates = append(candidates, Scored{Product: products[i], Score: score})
		}
	}

	slices.SortStableFunc(candidates, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return candidates
}

// Rank returns the products matching term ordered by relevance.
// A blank term returns products unchanged.
func (s *Scorer) Rank(products []domain.Product, term string) []domain.Product {
	if strings.TrimSpace(term) == "" {
		return products
	}

	scored := s.RankScored(products, term)
	out := make([]domain.Product, len(scored))
	for i := range scored {
		out[i] = scored[i].Product
	}
	return out
}
