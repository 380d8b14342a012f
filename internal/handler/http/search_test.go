package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-search/internal/catalog/memory"
	"github.com/utafrali/storefront-search/internal/catalog/seed"
	"github.com/utafrali/storefront-search/internal/service"
	"github.com/utafrali/storefront-search/pkg/health"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

type response struct {
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.New()
	products, err := seed.Products()
	require.NoError(t, err)
	require.NoError(t, store.BulkUpsert(context.Background(), products))

	svc := service.NewSearchService(store, logger)
	return NewRouter(RouterConfig{
		ServiceName:    "search-test",
		Service:        svc,
		Health:         health.NewHandler(),
		Logger:         logger,
		Registry:       prometheus.NewRegistry(),
		AllowedOrigins: []string{"*"},
	})
}

func do(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func decodeData[T any](t *testing.T, resp response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

type searchData struct {
	Hits []struct {
		Product struct {
			ID   int64  `json:"id"`
			Slug string `json:"slug"`
		} `json:"product"`
		Score           int    `json:"score"`
		HighlightedName string `json:"highlighted_name"`
	} `json:"hits"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

func (d searchData) ids() []int64 {
	ids := make([]int64, len(d.Hits))
	for i, h := range d.Hits {
		ids[i] = h.Product.ID
	}
	return ids
}

// --- Search Handler Tests ---

func TestSearch_RanksResults(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/api/v1/search?q=lace&highlight=true", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData[searchData](t, resp)
	assert.Equal(t, []int64{1, 3, 6}, data.ids())
	assert.Equal(t, 3, data.Total)
	assert.Equal(t, "Seductive <mark>Lace</mark> Bra Set", data.Hits[0].HighlightedName)
}

func TestSearch_ReturnsEmptyResults(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/api/v1/search?q=nonexistent", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData[searchData](t, resp)
	assert.Empty(t, data.Hits)
	assert.Equal(t, 0, data.Total)
}

func TestSearch_ParsesQueryParameters(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet,
		"/api/v1/search?category=lingerie&sale=true&min_price=4000&max_price=9000&sort=price-asc&page=1&per_page=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData[searchData](t, resp)
	assert.Equal(t, []int64{5, 6}, data.ids())
	assert.Equal(t, 3, data.Total)
	assert.Equal(t, 2, data.TotalPages)
	assert.True(t, data.HasNext)
}

func TestSearch_PageFarPastEnd(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/api/v1/search?q=lace&page=922337203685477581", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData[searchData](t, resp)
	assert.Empty(t, data.Hits)
	assert.Equal(t, 3, data.Total)
	assert.Equal(t, 922337203685477581, data.Page)
	assert.False(t, data.HasNext)
}

func TestSearch_InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"unknown sort", "/api/v1/search?sort=popularity"},
		{"non-numeric price", "/api/v1/search?min_price=abc"},
		{"negative price", "/api/v1/search?max_price=-1"},
		{"inverted price range", "/api/v1/search?min_price=9000&max_price=1000"},
		{"non-numeric page", "/api/v1/search?page=two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t)
			w, resp := do(t, router, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
		})
	}
}

// --- Suggest Handler Tests ---

func TestSuggest_EmptyQuery(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/api/v1/search/suggest", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData[map[string][]string](t, resp)
	assert.NotNil(t, data["suggestions"])
	assert.Empty(t, data["suggestions"])
}

func TestSuggest_WithQuery(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/api/v1/search/suggest?q=lace&limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	data := decodeData[map[string][]string](t, resp)
	assert.Equal(t, []string{"Seductive Lace Bra Set", "lace"}, data["suggestions"])
}

// --- Highlight and Related Handler Tests ---

func TestHighlight(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/api/v1/search/highlight?text=Tempting+Silk+Chemise&q=silk", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData[map[string]string](t, resp)
	assert.Equal(t, "Tempting <mark>Silk</mark> Chemise", data["highlighted"])
	assert.Equal(t, "Tempting Silk Chemise", data["text"])
}

func TestRelated(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/api/v1/search/related/3", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData[struct {
		Products []struct {
			ID int64 `json:"id"`
		} `json:"products"`
	}](t, resp)
	require.Len(t, data.Products, 2)
	assert.Equal(t, int64(1), data.Products[0].ID)
	assert.Equal(t, int64(6), data.Products[1].ID)
}

func TestRelated_Errors(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodGet, "/api/v1/search/related/404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	w, resp = do(t, router, http.MethodGet, "/api/v1/search/related/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

// --- IndexProduct Handler Tests ---

func TestIndexProduct_AcceptsValidBody(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodPost, "/api/v1/search/index",
		`{"id":100,"name":"Velvet Robe","category":"Lingerie","price":999}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	data := decodeData[map[string]any](t, resp)
	assert.Equal(t, float64(100), data["id"])
	assert.Equal(t, "indexed", data["status"])

	w, resp = do(t, router, http.MethodGet, "/api/v1/search?q=velvet", "")
	require.Equal(t, http.StatusOK, w.Code)
	search := decodeData[searchData](t, resp)
	require.Len(t, search.Hits, 1)
	assert.Equal(t, "velvet-robe", search.Hits[0].Product.Slug)
}

func TestIndexProduct_ValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodPost, "/api/v1/search/index", `{"category":"Lingerie","rating":9}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "id")
	assert.Contains(t, resp.Error.Fields, "name")
	assert.Contains(t, resp.Error.Fields, "rating")
}

func TestIndexProduct_RejectsInvalidJSON(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodPost, "/api/v1/search/index", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestIndexProduct_RejectsBodyOver1MB(t *testing.T) {
	router := newTestRouter(t)

	body := `{"id":1,"name":"` + strings.Repeat("x", 1<<20+1) + `"}`
	w, resp := do(t, router, http.MethodPost, "/api/v1/search/index", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestIndexProduct_RejectsNonJSONContentType(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/index", strings.NewReader("id=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

// --- BulkIndex Handler Tests ---

func TestBulkIndex_AcceptsValidBody(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodPost, "/api/v1/search/bulk",
		`{"products":[{"id":21,"name":"Bulk One","category":"A"},{"id":22,"name":"Bulk Two","category":"A"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData[map[string]any](t, resp)
	assert.Equal(t, float64(2), data["indexed"])
	assert.Equal(t, float64(0), data["skipped"])
}

func TestBulkIndex_RejectsEmptyProducts(t *testing.T) {
	router := newTestRouter(t)

	w, _ := do(t, router, http.MethodPost, "/api/v1/search/bulk", `{"products":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkIndex_ReportsNestedFieldErrors(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodPost, "/api/v1/search/bulk",
		`{"products":[{"id":21,"name":"Ok","category":"A"},{"id":22,"category":"A"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Fields, "products[1].name")
}

func TestBulkIndex_RejectsBodyOver10MB(t *testing.T) {
	router := newTestRouter(t)

	body := `{"products":[{"id":1,"name":"P","description":"` + strings.Repeat("y", 10<<20) + `"}]}`
	w, resp := do(t, router, http.MethodPost, "/api/v1/search/bulk", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// --- DeleteProduct Handler Tests ---

func TestDeleteProduct_ReturnsOK(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodDelete, "/api/v1/search/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData[map[string]any](t, resp)
	assert.Equal(t, "deleted", data["status"])

	w, _ = do(t, router, http.MethodGet, "/api/v1/search/related/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProduct_Errors(t *testing.T) {
	router := newTestRouter(t)

	w, _ := do(t, router, http.MethodDelete, "/api/v1/search/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, router, http.MethodDelete, "/api/v1/search/0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Reindex, Health and Metrics ---

func TestReindex_Accepted(t *testing.T) {
	router := newTestRouter(t)

	w, resp := do(t, router, http.MethodPost, "/api/v1/search/reindex", "{}")
	assert.Equal(t, http.StatusAccepted, w.Code)

	data := decodeData[map[string]string](t, resp)
	assert.Equal(t, "reindex started", data["status"])
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	w, _ := do(t, router, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mw := httptest.NewRecorder()
	router.ServeHTTP(mw, req)
	assert.Equal(t, http.StatusOK, mw.Code)
	assert.Contains(t, mw.Body.String(), "http_requests_total")
}

func TestCORS_Preflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
