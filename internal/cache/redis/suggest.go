package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "suggest:"
	generationKey = keyPrefix + "gen"
)

// SuggestCache caches suggestion lists in Redis. Entries are keyed by a
// catalog generation so a single INCR invalidates every cached list.
type SuggestCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSuggestCache creates a Redis-backed suggestion cache.
func NewSuggestCache(client *redis.Client, ttl time.Duration) *SuggestCache {
	return &SuggestCache{client: client, ttl: ttl}
}

// Key returns the cache key for query under generation gen. Suggestions
// match case-insensitively, so the query is lower-cased.
func Key(gen int64, query string) string {
	return fmt.Sprintf("%s%d:%s", keyPrefix, gen, strings.ToLower(query))
}

// Generation returns the current catalog generation. Callers pass it to Get
// and Set so a list computed before an Invalidate is never stored under the
// generation that Invalidate produced.
func (c *SuggestCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get suggest generation: %w", err)
	}
	return gen, nil
}

// Get returns the suggestions cached for query under gen and whether they
// were found.
func (c *SuggestCache) Get(ctx context.Context, gen int64, query string) ([]string, bool, error) {
	data, err := c.client.Get(ctx, Key(gen, query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get suggestions: %w", err)
	}

	var suggestions []string
	if err := json.Unmarshal(data, &suggestions); err != nil {
		return nil, false, fmt.Errorf("unmarshal suggestions: %w", err)
	}
	return suggestions, true, nil
}

// Set stores suggestions for query under gen with the configured TTL.
func (c *SuggestCache) Set(ctx context.Context, gen int64, query string, suggestions []string) error {
	data, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}
	if err := c.client.Set(ctx, Key(gen, query), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set suggestions: %w", err)
	}
	return nil
}

// Invalidate bumps the generation. Old entries expire through their TTL.
func (c *SuggestCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis incr suggest generation: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *SuggestCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
