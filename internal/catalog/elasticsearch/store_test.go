package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-search/internal/domain"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

// fakeCluster answers the handful of endpoints the store uses.
type fakeCluster struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string][]byte
	handler  func(w http.ResponseWriter, r *http.Request) bool
}

func newFakeStore(t *testing.T, handler func(w http.ResponseWriter, r *http.Request) bool) (*Store, *fakeCluster) {
	t.Helper()

	fc := &fakeCluster{bodies: make(map[string][]byte), handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		key := r.Method + " " + r.URL.Path
		fc.mu.Lock()
		fc.requests = append(fc.requests, key)
		fc.bodies[key] = body
		fc.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if !fc.handler(w, r) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"not_found","reason":"unhandled"},"status":404}`))
		}
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	return NewWithClient(client, "test_products", slog.New(slog.NewTextHandler(io.Discard, nil))), fc
}

func (fc *fakeCluster) body(key string) []byte {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.bodies[key]
}

func (fc *fakeCluster) seen(key string) bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for _, r := range fc.requests {
		if r == key {
			return true
		}
	}
	return false
}

func TestStore_EnsureIndex_CreatesMissingIndex(t *testing.T) {
	s, fc := newFakeStore(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method == http.MethodPut && r.URL.Path == "/test_products" {
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
			return true
		}
		return false
	})

	require.NoError(t, s.EnsureIndex(context.Background()))
	assert.True(t, fc.seen("HEAD /test_products"))

	var mapping map[string]any
	require.NoError(t, json.Unmarshal(fc.body("PUT /test_products"), &mapping))
	props := mapping["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, props, "position")
	assert.Contains(t, props, "tags")
}

func TestStore_EnsureIndex_ExistingIndex(t *testing.T) {
	s, fc := newFakeStore(t, func(w http.ResponseWriter, r *http.Request) bool {
		return r.Method == http.MethodHead
	})

	require.NoError(t, s.EnsureIndex(context.Background()))
	assert.False(t, fc.seen("PUT /test_products"))
}

func TestStore_Upsert_SendsScriptedReplace(t *testing.T) {
	s, fc := newFakeStore(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/test_products/_update/7" {
			_, _ = w.Write([]byte(`{"result":"created"}`))
			return true
		}
		return false
	})

	p := domain.Product{ID: 7, Name: "Denim Jacket", Category: "Clothing"}
	require.NoError(t, s.Upsert(context.Background(), &p))

	var body struct {
		Script struct {
			Params struct {
				Doc domain.Product `json:"doc"`
			} `json:"params"`
		} `json:"script"`
		Upsert struct {
			Name     string `json:"name"`
			Position int64  `json:"position"`
		} `json:"upsert"`
	}
	require.NoError(t, json.Unmarshal(fc.body("POST /test_products/_update/7"), &body))
	assert.Equal(t, "Denim Jacket", body.Script.Params.Doc.Name)
	assert.Equal(t, "Denim Jacket", body.Upsert.Name)
	assert.Positive(t, body.Upsert.Position)
}

func TestStore_NextPositionIncreases(t *testing.T) {
	s := NewWithClient(nil, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, DefaultIndexName, s.IndexName())

	prev := s.nextPosition()
	for i := 0; i < 100; i++ {
		next := s.nextPosition()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestStore_Get(t *testing.T) {
	s, _ := newFakeStore(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/test_products/_doc/1" {
			_, _ = w.Write([]byte(`{"_id":"1","found":true,"_source":{"id":1,"name":"Classic White T-Shirt","category":"Clothing","tags":["cotton"],"position":5}}`))
			return true
		}
		return false
	})

	p, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Classic White T-Shirt", p.Name)
	assert.Equal(t, []string{"cotton"}, p.Tags)

	_, err = s.Get(context.Background(), 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_Delete_NotFound(t *testing.T) {
	s, _ := newFakeStore(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method == http.MethodDelete && r.URL.Path == "/test_products/_doc/1" {
			_, _ = w.Write([]byte(`{"result":"deleted"}`))
			return true
		}
		return false
	})

	require.NoError(t, s.Delete(context.Background(), 1))
	assert.ErrorIs(t, s.Delete(context.Background(), 9), apperrors.ErrNotFound)
}

func TestStore_List_SortsByPosition(t *testing.T) {
	s, fc := newFakeStore(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/test_products/_search" {
			_, _ = w.Write([]byte(`{"hits":{"hits":[
				{"_source":{"id":3,"name":"C"},"sort":[1,3]},
				{"_source":{"id":1,"name":"A"},"sort":[2,1]}
			]}}`))
			return true
		}
		return false
	})

	got, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)

	sent := string(fc.body("POST /test_products/_search"))
	assert.Contains(t, sent, `"match_all"`)
	assert.Contains(t, sent, `{"position":"asc"}`)
	assert.NotContains(t, sent, "search_after")
}

func TestStore_Count(t *testing.T) {
	s, _ := newFakeStore(t, func(w http.ResponseWriter, r *http.Request) bool {
		if strings.HasSuffix(r.URL.Path, "/_count") {
			_, _ = w.Write([]byte(`{"count":6}`))
			return true
		}
		return false
	})

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestStore_BulkUpsert_PartialErrors(t *testing.T) {
	s, fc := newFakeStore(t, func(w http.ResponseWriter, r *http.Request) bool {
		if strings.HasSuffix(r.URL.Path, "/_bulk") {
			_, _ = w.Write([]byte(`{"errors":true,"items":[
				{"update":{"_id":"1","status":200}},
				{"update":{"_id":"2","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad price"}}}
			]}`))
			return true
		}
		return false
	})

	err := s.BulkUpsert(context.Background(), []domain.Product{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id=2: mapper_parsing_exception: bad price")

	lines := strings.Split(strings.TrimSpace(string(fc.body("POST /test_products/_bulk"))), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"update"`)
}

func TestStore_Unavailable(t *testing.T) {
	s, _ := newFakeStore(t, func(w http.ResponseWriter, r *http.Request) bool {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"type":"cluster_block_exception","reason":"blocked"},"status":503}`))
		return true
	})

	_, err := s.Count(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Contains(t, err.Error(), "cluster_block_exception")
}
