package domain

import (
	"slices"
	"strings"
)

// Product is a catalog record as seen by the search service.
// Tags may be nil and Description may be empty; both are treated as absent.
type Product struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags,omitempty"`
	Description   string   `json:"description,omitempty"`
	Price         int64    `json:"price"`
	OriginalPrice *int64   `json:"original_price,omitempty"`
	IsNew         bool     `json:"is_new"`
	IsSale        bool     `json:"is_sale"`
	InStock       bool     `json:"in_stock"`
	Rating        float64  `json:"rating"`
	ReviewCount   int      `json:"review_count"`
	Images        []string `json:"images,omitempty"`
}

// Sort options for term-less product listings.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
	SortNewest    = "newest"
	SortRating    = "rating"
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc, SortNewest, SortRating}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	return slices.Contains(ValidSortOptions(), sort)
}

// SearchQuery holds all parameters for a search request.
type SearchQuery struct {
	Query     string `json:"query"`
	Category  string `json:"category,omitempty"`
	OnSale    bool   `json:"on_sale,omitempty"`
	NewOnly   bool   `json:"new_only,omitempty"`
	InStock   bool   `json:"in_stock,omitempty"`
	MinPrice  *int64 `json:"min_price,omitempty"`
	MaxPrice  *int64 `json:"max_price,omitempty"`
	SortBy    string `json:"sort_by"`
	Highlight bool   `json:"highlight,omitempty"`
	Page      int    `json:"page"`
	PerPage   int    `json:"per_page"`
}

// HasTerm reports whether the query carries a non-blank search term.
func (q *SearchQuery) HasTerm() bool {
	return strings.TrimSpace(q.Query) != ""
}

// SearchHit is a single product in a search response.
type SearchHit struct {
	Product             Product `json:"product"`
	Score               int     `json:"score"`
	HighlightedName     string  `json:"highlighted_name,omitempty"`
	HighlightedCategory string  `json:"highlighted_category,omitempty"`
}

// SearchResult holds the paginated search response.
type SearchResult struct {
	Hits       []SearchHit `json:"hits"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	TotalPages int         `json:"total_pages"`
	HasNext    bool        `json:"has_next"`
	TookMs     int64       `json:"took_ms"`
}
