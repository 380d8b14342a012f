package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/utafrali/storefront-search/internal/catalog"
	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/relevance"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
	"github.com/utafrali/storefront-search/pkg/pagination"
)

// Suggestion and related-product limits.
const (
	DefaultSuggestLimit = relevance.MaxSuggestions
	DefaultRelatedLimit = 4
	MaxRelatedLimit     = 20
)

// SearchService implements the business logic for search operations.
type SearchService struct {
	store       catalog.Store
	scorer      *relevance.Scorer
	highlighter *relevance.Highlighter
	cache       SuggestionCache
	source      ProductSource
	metrics     *Metrics
	logger      *slog.Logger

	reindexing atomic.Bool
}

// Option configures a SearchService.
type Option func(*SearchService)

// WithScorer overrides the default scoring table.
func WithScorer(s *relevance.Scorer) Option {
	return func(svc *SearchService) { svc.scorer = s }
}

// WithHighlighter overrides the default <mark> highlighter.
func WithHighlighter(h *relevance.Highlighter) Option {
	return func(svc *SearchService) { svc.highlighter = h }
}

// WithCache enables suggestion caching.
func WithCache(c SuggestionCache) Option {
	return func(svc *SearchService) { svc.cache = c }
}

// WithProductSource sets where Reindex pulls the catalog from.
func WithProductSource(src ProductSource) Option {
	return func(svc *SearchService) { svc.source = src }
}

// WithMetrics enables domain metrics.
func WithMetrics(m *Metrics) Option {
	return func(svc *SearchService) { svc.metrics = m }
}

// NewSearchService creates a new search service over store.
func NewSearchService(store catalog.Store, logger *slog.Logger, opts ...Option) *SearchService {
	svc := &SearchService{
		store:       store,
		scorer:      relevance.DefaultScorer(),
		highlighter: relevance.DefaultHighlighter(),
		cache:       NoopCache{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Search filters the catalog, ranks it by relevance when a term is given,
// and returns the requested page. Without a term the sort option applies.
func (s *SearchService) Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, error) {
	start := time.Now()

	if query.SortBy == "" {
		query.SortBy = domain.SortRelevance
	}
	if !domain.IsValidSort(query.SortBy) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid sort %q: must be one of %s",
			query.SortBy, strings.Join(domain.ValidSortOptions(), ", ")))
	}
	if query.MinPrice != nil && query.MaxPrice != nil && *query.MinPrice > *query.MaxPrice {
		return nil, apperrors.InvalidInput("min_price must not exceed max_price")
	}

	products, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	products = applyFilters(products, query)

	var ranked []relevance.Scored
	if query.HasTerm() {
		ranked = s.scorer.RankScored(products, query.Query)
	} else {
		sortProducts(products, query.SortBy)
		ranked = s.scorer.RankScored(products, "")
	}

	params := pagination.New(query.Page, query.PerPage)
	window := pagination.Page(ranked, params)

	hits := make([]domain.SearchHit, len(window))
	for i, r := range window {
		hits[i] = domain.SearchHit{Product: r.Product, Score: r.Score}
		if query.Highlight && query.HasTerm() {
			hits[i].HighlightedName = s.highlighter.Highlight(r.Product.Name, query.Query)
			hits[i].HighlightedCategory = s.highlighter.Highlight(r.Product.Category, query.Query)
		}
	}

	took := time.Since(start)
	result := &domain.SearchResult{
		Hits:       hits,
		Total:      len(ranked),
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: params.TotalPages(len(ranked)),
		HasNext:    params.HasNext(len(ranked)),
		TookMs:     took.Milliseconds(),
	}
	s.metrics.observeSearch(query.HasTerm(), result.Total, took)

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", query.Query),
		slog.Int("total", result.Total),
		slog.Int64("took_ms", result.TookMs),
	)

	return result, nil
}

// applyFilters keeps products passing every requested filter, preserving order.
func applyFilters(products []domain.Product, q *domain.SearchQuery) []domain.Product {
	category := strings.TrimSpace(q.Category)
	out := products[:0:0]
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if q.OnSale && !p.IsSale {
			continue
		}
		if q.NewOnly && !p.IsNew {
			continue
		}
		if q.InStock && !p.InStock {
			continue
		}
		if q.MinPrice != nil && p.Price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		out = append(out, p)
	}
	return out
}

// sortProducts applies a term-less sort option. Ties keep catalog order.
func sortProducts(products []domain.Product, sortBy string) {
	var less func(a, b domain.Product) int
	switch sortBy {
	case domain.SortPriceAsc:
		less = func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) }
	case domain.SortPriceDesc:
		less = func(a, b domain.Product) int { return cmp.Compare(b.Price, a.Price) }
	case domain.SortNameAsc:
		less = func(a, b domain.Product) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	case domain.SortNameDesc:
		less = func(a, b domain.Product) int { return cmp.Compare(strings.ToLower(b.Name), strings.ToLower(a.Name)) }
	case domain.SortNewest:
		less = func(a, b domain.Product) int { return boolRank(b.IsNew) - boolRank(a.IsNew) }
	case domain.SortRating:
		less = func(a, b domain.Product) int { return cmp.Compare(b.Rating, a.Rating) }
	default:
		return
	}
	slices.SortStableFunc(products, less)
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Suggest returns up to limit suggestions for q. Limits outside 1..5 fall
// back to 5. Cache failures are logged and bypassed.
func (s *SearchService) Suggest(ctx context.Context, q string, limit int) ([]string, error) {
	if limit < 1 || limit > relevance.MaxSuggestions {
		limit = DefaultSuggestLimit
	}
	if strings.TrimSpace(q) == "" {
		return []string{}, nil
	}

	// The generation is read before the catalog so a concurrent mutation can
	// only strand the computed list under a generation that is already stale.
	var suggestions []string
	gen, err := s.cache.Generation(ctx)
	cacheOK := err == nil
	ok := false
	if err != nil {
		s.logger.WarnContext(ctx, "suggest cache read failed", slog.String("error", err.Error()))
	} else if suggestions, ok, err = s.cache.Get(ctx, gen, q); err != nil {
		s.logger.WarnContext(ctx, "suggest cache read failed", slog.String("error", err.Error()))
	}
	if ok {
		s.metrics.cacheResult("hit")
	} else {
		s.metrics.cacheResult("miss")

		products, err := s.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggest: %w", err)
		}
		suggestions = relevance.Suggest(products, q)

		if cacheOK {
			if err := s.cache.Set(ctx, gen, q, suggestions); err != nil {
				s.logger.WarnContext(ctx, "suggest cache write failed", slog.String("error", err.Error()))
			}
		}
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// Highlight wraps the words of term found in text with the configured markers.
func (s *SearchService) Highlight(text, term string) string {
	return s.highlighter.Highlight(text, term)
}

// Related returns other products sharing a keyword with the name of the
// product identified by id, in catalog order.
func (s *SearchService) Related(ctx context.Context, id int64, limit int) ([]domain.Product, error) {
	if limit < 1 {
		limit = DefaultRelatedLimit
	}
	limit = min(limit, MaxRelatedLimit)

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("related: %w", err)
	}

	products, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("related: %w", err)
	}

	keywords := relevance.ExtractKeywords(current.Name)
	related := make([]domain.Product, 0, limit)
	for i := range products {
		if len(related) == limit {
			break
		}
		if products[i].ID == id || !relevance.MatchesKeywords(&products[i], keywords) {
			continue
		}
		related = append(related, products[i])
	}
	return related, nil
}
