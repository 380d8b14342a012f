// Package seed ships the bundled mock catalog used for local development
// and demos.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront-search/internal/catalog"
	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/pkg/slug"
)

//go:embed products.json
var productsJSON []byte

// Products decodes the bundled catalog, filling in slugs.
func Products() ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(productsJSON, &products); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	for i := range products {
		products[i].Slug = slug.Ensure(products[i].Slug, products[i].Name)
	}
	return products, nil
}

// Load seeds store with the bundled catalog when it is empty. It returns
// the number of products written.
func Load(ctx context.Context, store catalog.Store, logger *slog.Logger) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count catalog: %w", err)
	}
	if n > 0 {
		logger.Info("catalog already populated, skipping seed", slog.Int("count", n))
		return 0, nil
	}

	products, err := Products()
	if err != nil {
		return 0, err
	}
	if err := store.BulkUpsert(ctx, products); err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}

	logger.Info("catalog seeded", slog.Int("count", len(products)))
	return len(products), nil
}
