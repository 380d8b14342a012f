package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/pkg/database"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

const productColumns = `id, name, slug, category, tags, description, price, original_price,
	is_new, is_sale, in_stock, rating, review_count, images`

// position is assigned on first insert only, so re-upserts keep catalog order.
const upsertSQL = `
	INSERT INTO products (` + productColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		slug = EXCLUDED.slug,
		category = EXCLUDED.category,
		tags = EXCLUDED.tags,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		original_price = EXCLUDED.original_price,
		is_new = EXCLUDED.is_new,
		is_sale = EXCLUDED.is_sale,
		in_stock = EXCLUDED.in_stock,
		rating = EXCLUDED.rating,
		review_count = EXCLUDED.review_count,
		images = EXCLUDED.images,
		updated_at = NOW()`

const (
	getSQL    = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	listSQL   = `SELECT ` + productColumns + ` FROM products ORDER BY position, id`
	countSQL  = `SELECT COUNT(*) FROM products`
	deleteSQL = `DELETE FROM products WHERE id = $1`
)

// Store implements catalog.Store using PostgreSQL.
type Store struct {
	db database.DBTX
}

// New creates a PostgreSQL-backed catalog store.
func New(db database.DBTX) *Store {
	return &Store{db: db}
}

func upsertArgs(p *domain.Product) []any {
	return []any{
		p.ID, p.Name, p.Slug, p.Category, p.Tags, p.Description, p.Price, p.OriginalPrice,
		p.IsNew, p.IsSale, p.InStock, p.Rating, p.ReviewCount, p.Images,
	}
}

// Upsert inserts or updates a product.
func (s *Store) Upsert(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpsertProduct", upsertSQL)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, upsertSQL, upsertArgs(p)...); err != nil {
		return fmt.Errorf("upsert product %d: %w", p.ID, err)
	}
	return nil
}

// BulkUpsert upserts all products in a single transaction.
func (s *Store) BulkUpsert(ctx context.Context, products []domain.Product) (err error) {
	if len(products) == 0 {
		return nil
	}

	ctx, end := database.TraceQuery(ctx, "BulkUpsertProducts", upsertSQL)
	defer func() { end(err) }()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for i := range products {
		if _, err = tx.Exec(ctx, upsertSQL, upsertArgs(&products[i])...); err != nil {
			return fmt.Errorf("upsert product %d: %w", products[i].ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bulk upsert: %w", err)
	}
	return nil
}

// Delete removes a product by ID.
func (s *Store) Delete(ctx context.Context, id int64) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteProduct", deleteSQL)
	defer func() { end(err) }()

	tag, err := s.db.Exec(ctx, deleteSQL, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// Get retrieves a product by ID.
func (s *Store) Get(ctx context.Context, id int64) (_ *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "GetProduct", getSQL)
	defer func() { end(err) }()

	p, err := scanProduct(s.db.QueryRow(ctx, getSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &p, nil
}

// List returns all products ordered by catalog position.
func (s *Store) List(ctx context.Context) (_ []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "ListProducts", listSQL)
	defer func() { end(err) }()

	rows, err := s.db.Query(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// Count returns the number of products.
func (s *Store) Count(ctx context.Context) (n int, err error) {
	ctx, end := database.TraceQuery(ctx, "CountProducts", countSQL)
	defer func() { end(err) }()

	if err = s.db.QueryRow(ctx, countSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Category, &p.Tags, &p.Description, &p.Price, &p.OriginalPrice,
		&p.IsNew, &p.IsSale, &p.InStock, &p.Rating, &p.ReviewCount, &p.Images,
	)
	return p, err
}
