package relevance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights is the additive points table used by the Scorer. Each field is the
// number of points a product earns when the matching condition holds.
type Weights struct {
	NameExact        int `yaml:"name_exact" json:"name_exact"`
	NameContains     int `yaml:"name_contains" json:"name_contains"`
	NamePrefix       int `yaml:"name_prefix" json:"name_prefix"`
	CategoryExact    int `yaml:"category_exact" json:"category_exact"`
	CategoryContains int `yaml:"category_contains" json:"category_contains"`

	// Per-word conditions, applied once for every word of the term.
	WordName        int `yaml:"word_name" json:"word_name"`
	WordCategory    int `yaml:"word_category" json:"word_category"`
	WordTag         int `yaml:"word_tag" json:"word_tag"`
	WordDescription int `yaml:"word_description" json:"word_description"`
}

// DefaultWeights returns the storefront scoring table.
func DefaultWeights() Weights {
	return Weights{
		NameExact:        100,
		NameContains:     50,
		NamePrefix:       40,
		CategoryExact:    30,
		CategoryContains: 20,
		WordName:         10,
		WordCategory:     5,
		WordTag:          8,
		WordDescription:  3,
	}
}

// Validate rejects tables that could produce a negative score.
func (w Weights) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"name_exact", w.NameExact},
		{"name_contains", w.NameContains},
		{"name_prefix", w.NamePrefix},
		{"category_exact", w.CategoryExact},
		{"category_contains", w.CategoryContains},
		{"word_name", w.WordName},
		{"word_category", w.WordCategory},
		{"word_tag", w.WordTag},
		{"word_description", w.WordDescription},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("weight %s must not be negative, got %d", f.name, f.value)
		}
	}
	return nil
}

// ParseWeights decodes a YAML weights document. Keys that are absent keep
// their default value.
func ParseWeights(data []byte) (Weights, error) {
	w := DefaultWeights()
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("parse weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, fmt.Errorf("parse weights: %w", err)
	}
	return w, nil
}

// LoadWeights reads a YAML weights file. An empty path yields DefaultWeights.
func LoadWeights(path string) (Weights, error) {
	if path == "" {
		return DefaultWeights(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read weights file: %w", err)
	}
	return ParseWeights(data)
}
