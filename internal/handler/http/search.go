package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/service"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
	"github.com/utafrali/storefront-search/pkg/httputil"
	"github.com/utafrali/storefront-search/pkg/validator"
)

const (
	maxBodyBytes     = 1 << 20
	maxBulkBodyBytes = 10 << 20
	reindexTimeout   = 10 * time.Minute
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

func parseSearchQuery(r *http.Request) (*domain.SearchQuery, error) {
	q := r.URL.Query()

	query := &domain.SearchQuery{
		Query:     q.Get("q"),
		Category:  strings.TrimSpace(q.Get("category")),
		OnSale:    httputil.QueryBool(r, "sale"),
		NewOnly:   httputil.QueryBool(r, "new"),
		InStock:   httputil.QueryBool(r, "in_stock"),
		Highlight: httputil.QueryBool(r, "highlight"),
		SortBy:    strings.ReplaceAll(strings.TrimSpace(q.Get("sort")), "-", "_"),
	}

	var err error
	if query.MinPrice, err = httputil.QueryInt64Ptr(r, "min_price"); err != nil {
		return nil, err
	}
	if query.MaxPrice, err = httputil.QueryInt64Ptr(r, "max_price"); err != nil {
		return nil, err
	}
	if (query.MinPrice != nil && *query.MinPrice < 0) || (query.MaxPrice != nil && *query.MaxPrice < 0) {
		return nil, apperrors.InvalidInput("price filters must not be negative")
	}
	if query.Page, err = httputil.QueryInt(r, "page", 1); err != nil {
		return nil, err
	}
	if query.PerPage, err = httputil.QueryInt(r, "per_page", 0); err != nil {
		return nil, err
	}

	return query, nil
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", service.DefaultSuggestLimit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	suggestions, err := h.service.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"suggestions": suggestions}})
}

// Highlight handles GET /api/v1/search/highlight
func (h *SearchHandler) Highlight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("text")

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"text":        text,
		"highlighted": h.service.Highlight(text, q.Get("q")),
	}})
}

// Related handles GET /api/v1/search/related/{id}
func (h *SearchHandler) Related(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	limit, err := httputil.QueryInt(r, "limit", service.DefaultRelatedLimit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	products, err := h.service.Related(r.Context(), id, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"products": products}})
}

// IndexProduct handles POST /api/v1/search/index
func (h *SearchHandler) IndexProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req service.IndexProductInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.IndexProduct(r.Context(), &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"id": req.ID, "status": "indexed"}})
}

// DeleteProduct handles DELETE /api/v1/search/{id}
func (h *SearchHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"id": id, "status": "deleted"}})
}

// BulkIndex handles POST /api/v1/search/bulk
func (h *SearchHandler) BulkIndex(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBulkBodyBytes)

	var req service.BulkIndexInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	indexed, skipped, err := h.service.BulkIndex(r.Context(), req.Products)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"indexed": indexed,
		"skipped": skipped,
		"status":  "ok",
	}})
}

// Reindex handles POST /api/v1/search/reindex. The run continues in the
// background after the 202 response.
func (h *SearchHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	if h.service.Reindexing() {
		httputil.WriteError(w, r, apperrors.Conflict("reindex already in progress"), h.logger)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		ctx, cancel := context.WithTimeout(ctx, reindexTimeout)
		defer cancel()
		if err := h.service.Reindex(ctx); err != nil && !errors.Is(err, apperrors.ErrConflict) {
			h.logger.ErrorContext(ctx, "background reindex failed", slog.String("error", err.Error()))
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "reindex started"}})
}
