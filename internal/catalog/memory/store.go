package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/utafrali/storefront-search/internal/domain"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

// Store is an in-memory catalog. Products are kept in insertion order.
// Thread-safe via sync.RWMutex.
type Store struct {
	mu       sync.RWMutex
	products []domain.Product
	index    map[int64]int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{index: make(map[int64]int)}
}

func (s *Store) Upsert(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(clone(*product))
	return nil
}

func (s *Store) BulkUpsert(_ context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range products {
		s.upsertLocked(clone(products[i]))
	}
	return nil
}

func (s *Store) upsertLocked(p domain.Product) {
	if i, ok := s.index[p.ID]; ok {
		s.products[i] = p
		return
	}
	s.index[p.ID] = len(s.products)
	s.products = append(s.products, p)
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return apperrors.NotFound("product", id)
	}
	s.products = slices.Delete(s.products, i, i+1)
	delete(s.index, id)
	for j := i; j < len(s.products); j++ {
		s.index[s.products[j].ID] = j
	}
	return nil
}

func (s *Store) Get(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	p := clone(s.products[i])
	return &p, nil
}

func (s *Store) List(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, len(s.products))
	for i := range s.products {
		out[i] = clone(s.products[i])
	}
	return out, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products), nil
}

// clone copies the slice and pointer fields so callers cannot mutate stored state.
func clone(p domain.Product) domain.Product {
	p.Tags = slices.Clone(p.Tags)
	p.Images = slices.Clone(p.Images)
	if p.OriginalPrice != nil {
		v := *p.OriginalPrice
		p.OriginalPrice = &v
	}
	return p
}
