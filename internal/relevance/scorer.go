// Package relevance ranks storefront products against free-text queries.
//
// Scoring is a weighted multi-field rule applied by a linear scan over the
// candidate set. Every function in this package is pure: callers may share a
// Scorer or Highlighter across goroutines, and the product slices passed in
// are only read.
package relevance

import (
	"strings"

	"github.com/utafrali/storefront-search/internal/domain"
)

// Scorer computes relevance scores from a Weights table.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer using the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// DefaultScorer returns a scorer using DefaultWeights.
func DefaultScorer() *Scorer {
	return NewScorer(DefaultWeights())
}

// Weights returns the table the scorer was built with.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score returns the relevance of p for term. A blank term scores 0.
// The term is lower-cased but not trimmed, so surrounding spaces take part in
// the whole-term comparisons.
func (s *Scorer) Score(p *domain.Product, term string) int {
	if strings.TrimSpace(term) == "" {
		return 0
	}

	w := s.weights
	t := strings.ToLower(term)
	name := strings.ToLower(p.Name)
	category := strings.ToLower(p.Category)
	description := strings.ToLower(p.Description)

	score := 0
	if name == t {
		score += w.NameExact
	}
	if strings.Contains(name, t) {
		score += w.NameContains
	}
	if strings.HasPrefix(name, t) {
		score += w.NamePrefix
	}
	if category == t {
		score += w.CategoryExact
	}
	if strings.Contains(category, t) {
		score += w.CategoryContains
	}

	for _, word := range splitWords(t) {
		if strings.Contains(name, word) {
			score += w.WordName
		}
		if strings.Contains(category, word) {
			score += w.WordCategory
		}
		if anyTagContains(p.Tags, word) {
			score += w.WordTag
		}
		if strings.Contains(description, word) {
			score += w.WordDescription
		}
	}

	return score
}

// splitWords splits an already lower-cased term on single spaces and drops
// empty words.
func splitWords(t string) []string {
	parts := strings.Split(t, " ")
	words := parts[:0]
	for _, p := range parts {
		if p != "" {
			words = append(words, p)
		}
	}
	return words
}

func anyTagContains(tags []string, word string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), word) {
			return true
		}
	}
	return false
}
