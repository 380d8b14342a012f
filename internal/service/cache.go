package service

import "context"

// SuggestionCache stores suggestion lists by query within a catalog
// generation. Implementations must be safe for concurrent use.
type SuggestionCache interface {
	// Generation returns the current catalog generation.
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, query string) ([]string, bool, error)
	Set(ctx context.Context, gen int64, query string, suggestions []string) error
	// Invalidate moves to a new generation after a catalog change.
	Invalidate(ctx context.Context) error
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Generation(context.Context) (int64, error) { return 0, nil }
func (NoopCache) Get(context.Context, int64, string) ([]string, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, int64, string, []string) error { return nil }
func (NoopCache) Invalidate(context.Context) error { return nil }
