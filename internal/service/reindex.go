package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/storefront-search/internal/domain"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
	"github.com/utafrali/storefront-search/pkg/httpclient"
	"github.com/utafrali/storefront-search/pkg/validator"
)

const productServiceName = "product-service"

// HTTPGetter is the subset of httpclient.CircuitBreakerClient used to pull
// the catalog.
type HTTPGetter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// ProductSource locates the product service that Reindex reads from.
type ProductSource struct {
	BaseURL string
	Client  HTTPGetter
}

// productPage is the paginated list envelope of the product service.
type productPage struct {
	Data       []json.RawMessage `json:"data"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
}

// Reindex pulls every product from the product service and upserts it into
// the store, page by page. Only one reindex runs at a time.
func (s *SearchService) Reindex(ctx context.Context) error {
	if s.source.Client == nil || s.source.BaseURL == "" {
		return apperrors.Unavailable("reindex source is not configured", nil)
	}
	if !s.reindexing.CompareAndSwap(false, true) {
		return apperrors.Conflict("reindex already in progress")
	}
	defer s.reindexing.Store(false)

	s.logger.InfoContext(ctx, "reindex started", slog.String("source", s.source.BaseURL))

	total, skipped := 0, 0
	for page := 1; ; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			return fmt.Errorf("fetch products page %d: %w", page, err)
		}
		if len(resp.Data) == 0 {
			break
		}

		products, bad := s.decodePage(ctx, resp.Data)
		skipped += bad
		if len(products) > 0 {
			if err := s.store.BulkUpsert(ctx, products); err != nil {
				return fmt.Errorf("reindex page %d: %w", page, err)
			}
			total += len(products)
		}

		if page >= resp.TotalPages {
			break
		}
	}

	s.invalidate(ctx)
	s.metrics.reindex(total)

	s.logger.InfoContext(ctx, "reindex completed",
		slog.Int("indexed", total),
		slog.Int("skipped", skipped),
	)

	return nil
}

func (s *SearchService) fetchPage(ctx context.Context, page int) (*productPage, error) {
	endpoint := strings.TrimRight(s.source.BaseURL, "/") + "/api/v1/products?" +
		url.Values{"page": []string{strconv.Itoa(page)}}.Encode()

	resp, err := s.source.Client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return nil, httpclient.ParseResponseError(resp, productServiceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var body productPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &body, nil
}

// decodePage converts raw entries, skipping any that do not decode or
// validate as a product.
func (s *SearchService) decodePage(ctx context.Context, raw []json.RawMessage) ([]domain.Product, int) {
	products := make([]domain.Product, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		var input IndexProductInput
		if err := json.Unmarshal(item, &input); err != nil {
			s.logger.WarnContext(ctx, "skipping malformed product", slog.String("error", err.Error()))
			skipped++
			continue
		}
		if err := validator.Validate(&input); err != nil {
			s.logger.WarnContext(ctx, "skipping invalid product",
				slog.Int64("product_id", input.ID),
				slog.String("error", err.Error()),
			)
			skipped++
			continue
		}
		products = append(products, input.Product())
	}
	return products, skipped
}

// Reindexing reports whether a reindex run is in progress.
func (s *SearchService) Reindexing() bool {
	return s.reindexing.Load()
}
