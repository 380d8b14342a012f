// Package catalog defines the product store the search service ranks over.
package catalog

import (
	"context"

	"github.com/utafrali/storefront-search/internal/domain"
)

// Store persists catalog products. List returns products in catalog order,
// which is the order ranking ties fall back to: first insertion wins, and
// re-upserting a product keeps its position.
type Store interface {
	// Upsert adds a product or replaces the one with the same ID.
	Upsert(ctx context.Context, product *domain.Product) error

	// BulkUpsert upserts products in order.
	BulkUpsert(ctx context.Context, products []domain.Product) error

	// Delete removes a product. It returns a not-found error if the ID is unknown.
	Delete(ctx context.Context, id int64) error

	// Get returns a product by ID or a not-found error.
	Get(ctx context.Context, id int64) (*domain.Product, error)

	// List returns all products in catalog order.
	List(ctx context.Context) ([]domain.Product, error)

	// Count returns the number of stored products.
	Count(ctx context.Context) (int, error)
}
