package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront-search/internal/domain"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
	"github.com/utafrali/storefront-search/pkg/slug"
	"github.com/utafrali/storefront-search/pkg/validator"
)

// IndexProductInput holds the parameters for indexing a product.
type IndexProductInput struct {
	ID            int64    `json:"id" validate:"gt=0"`
	Name          string   `json:"name" validate:"required,max=200"`
	Slug          string   `json:"slug" validate:"max=200"`
	Category      string   `json:"category" validate:"required,max=100"`
	Tags          []string `json:"tags" validate:"max=50"`
	Description   string   `json:"description" validate:"max=5000"`
	Price         int64    `json:"price" validate:"gte=0"`
	OriginalPrice *int64   `json:"original_price" validate:"omitempty,gte=0"`
	IsNew         bool     `json:"is_new"`
	IsSale        bool     `json:"is_sale"`
	InStock       bool     `json:"in_stock"`
	Rating        float64  `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount   int      `json:"review_count" validate:"gte=0"`
	Images        []string `json:"images"`
}

// BulkIndexInput is the request body of a bulk index call.
type BulkIndexInput struct {
	Products []IndexProductInput `json:"products" validate:"required,min=1,max=1000,dive"`
}

// Product converts the input to a domain product, deriving the slug from the
// name when none is given.
func (in *IndexProductInput) Product() domain.Product {
	return domain.Product{
		ID:            in.ID,
		Name:          in.Name,
		Slug:          slug.Ensure(in.Slug, in.Name),
		Category:      in.Category,
		Tags:          in.Tags,
		Description:   in.Description,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		IsNew:         in.IsNew,
		IsSale:        in.IsSale,
		InStock:       in.InStock,
		Rating:        in.Rating,
		ReviewCount:   in.ReviewCount,
		Images:        in.Images,
	}
}

// IndexProduct validates and stores a single product.
func (s *SearchService) IndexProduct(ctx context.Context, input *IndexProductInput) error {
	if err := validator.Validate(input); err != nil {
		return fmt.Errorf("index product: %w", err)
	}

	product := input.Product()
	if err := s.store.Upsert(ctx, &product); err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	s.invalidate(ctx)
	s.metrics.mutation("upsert", 1)

	s.logger.InfoContext(ctx, "product indexed",
		slog.Int64("product_id", product.ID),
		slog.String("name", product.Name),
	)

	return nil
}

// BulkIndex stores every valid input. Inputs failing validation are skipped
// and counted in the returned total of skipped entries.
func (s *SearchService) BulkIndex(ctx context.Context, inputs []IndexProductInput) (indexed, skipped int, err error) {
	products := make([]domain.Product, 0, len(inputs))
	for i := range inputs {
		if verr := validator.Validate(&inputs[i]); verr != nil {
			s.logger.WarnContext(ctx, "skipping invalid product",
				slog.Int64("product_id", inputs[i].ID),
				slog.String("error", verr.Error()),
			)
			skipped++
			continue
		}
		products = append(products, inputs[i].Product())
	}

	if len(products) == 0 {
		return 0, skipped, nil
	}

	if err := s.store.BulkUpsert(ctx, products); err != nil {
		return 0, skipped, fmt.Errorf("bulk index: %w", err)
	}
	s.invalidate(ctx)
	s.metrics.mutation("bulk_upsert", len(products))

	s.logger.InfoContext(ctx, "bulk index completed",
		slog.Int("count", len(products)),
		slog.Int("skipped", skipped),
	)

	return len(products), skipped, nil
}

// DeleteProduct removes a product from the catalog.
func (s *SearchService) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperrors.InvalidInput("product id must be positive")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidate(ctx)
	s.metrics.mutation("delete", 1)

	s.logger.InfoContext(ctx, "product deleted from index",
		slog.Int64("product_id", id),
	)

	return nil
}

// invalidate drops cached suggestions. Failures only cost staleness until
// the entries expire, so they are logged and swallowed.
func (s *SearchService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "suggest cache invalidation failed", slog.String("error", err.Error()))
	}
}
