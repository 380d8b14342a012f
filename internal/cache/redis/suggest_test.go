package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*SuggestCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSuggestCache(client, 5*time.Minute), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "suggest:0:lace", Key(0, "lace"))
	assert.Equal(t, "suggest:3:silk chemise", Key(3, "Silk Chemise"))
}

func TestSuggestCache_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)

	got, ok, err := c.Get(context.Background(), 0, "lace")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSuggestCache_SetThenGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	want := []string{"Seductive Lace Bra Set", "lace", "Passionate Lace Bodysuit"}
	require.NoError(t, c.Set(ctx, 0, "Lace", want))

	got, ok, err := c.Get(ctx, 0, "lace")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	assert.True(t, mr.Exists("suggest:0:lace"))
	assert.Equal(t, 5*time.Minute, mr.TTL("suggest:0:lace"))
}

func TestSuggestCache_EmptyListIsCached(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 0, "zzz", []string{}))

	got, ok, err := c.Get(ctx, 0, "zzz")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSuggestCache_Generation(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Invalidate(ctx))

	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
}

func TestSuggestCache_InvalidateHidesOldEntries(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 0, "silk", []string{"silk"}))
	require.NoError(t, c.Invalidate(ctx))

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	_, ok, err := c.Get(ctx, gen, "silk")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, gen, "silk", []string{"Tempting Silk Chemise"}))
	assert.True(t, mr.Exists("suggest:1:silk"))
}

func TestSuggestCache_SetAfterInvalidateKeepsObservedGeneration(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	_, ok, err := c.Get(ctx, gen, "la")
	require.NoError(t, err)
	require.False(t, ok)

	// The catalog changes while the miss is being computed.
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, gen, "la", []string{"Old Lace Product"}))

	current, err := c.Generation(ctx)
	require.NoError(t, err)
	got, ok, err := c.Get(ctx, current, "la")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)

	assert.True(t, mr.Exists("suggest:0:la"))
	assert.False(t, mr.Exists("suggest:1:la"))
}

func TestSuggestCache_CorruptEntry(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("suggest:0:lace", "not-json"))

	_, _, err := c.Get(context.Background(), 0, "lace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal suggestions")
}

func TestSuggestCache_Unreachable(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Generation(context.Background())
	assert.Error(t, err)
	_, _, err = c.Get(context.Background(), 0, "lace")
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}
