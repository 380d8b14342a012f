package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/pkg/database"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

// listPageSize bounds each search_after page when listing the catalog.
const listPageSize = 500

// Store is an Elasticsearch-backed implementation of catalog.Store.
type Store struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger

	mu      sync.Mutex
	lastPos int64
}

// document is the stored form of a product. Position is written only when
// the document is first created.
type document struct {
	domain.Product
	Position int64 `json:"position"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source domain.Product `json:"_source"`
			Sort   []any          `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// New connects to Elasticsearch at esURL and ensures the catalog index
// exists. If indexName is empty, DefaultIndexName is used.
func New(ctx context.Context, esURL, indexName string, logger *slog.Logger) (*Store, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}
	s := NewWithClient(client, indexName, logger)
	if err := s.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index: %w", err)
	}
	return s, nil
}

// NewWithClient wraps an existing client without touching the cluster.
func NewWithClient(client *elasticsearch.Client, indexName string, logger *slog.Logger) *Store {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	return &Store{client: client, indexName: indexName, logger: logger}
}

// IndexName returns the backing index.
func (s *Store) IndexName() string { return s.indexName }

// Ping checks whether the cluster is reachable.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the catalog index with its mapping if it is missing.
func (s *Store) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.indexName}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		s.logger.Info("elasticsearch index already exists", slog.String("index", s.indexName))
		return nil
	}

	res, err = s.client.Indices.Create(
		s.indexName,
		s.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	s.logger.Info("elasticsearch index created", slog.String("index", s.indexName))
	return nil
}

// DeleteIndex removes the catalog index. A missing index is not an error.
func (s *Store) DeleteIndex(ctx context.Context) error {
	res, err := s.client.Indices.Delete([]string{s.indexName}, s.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete index", res)
	}
	return nil
}

// nextPosition returns a strictly increasing catalog position.
func (s *Store) nextPosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := time.Now().UnixNano()
	if pos <= s.lastPos {
		pos = s.lastPos + 1
	}
	s.lastPos = pos
	return pos
}

// replaceScript swaps the whole source so cleared optional fields do not
// survive a partial merge, while keeping the original position.
const replaceScript = `def pos = ctx._source.position; ctx._source.clear(); ctx._source.putAll(params.doc); ctx._source.position = pos;`

// updateBody replaces an existing document or inserts it with a new position.
func (s *Store) updateBody(p *domain.Product) map[string]any {
	return map[string]any{
		"script": map[string]any{
			"lang":   "painless",
			"source": replaceScript,
			"params": map[string]any{"doc": p},
		},
		"upsert": document{Product: *p, Position: s.nextPosition()},
	}
}

// Upsert creates or replaces a product document.
func (s *Store) Upsert(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.Trace(ctx, database.SystemElasticsearch, "UpsertProduct", s.indexName)
	defer func() { end(err) }()

	data, err := json.Marshal(s.updateBody(p))
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: marshal product: %w", err)
	}

	res, err := s.client.Update(
		s.indexName,
		docID(p.ID),
		bytes.NewReader(data),
		s.client.Update.WithRefresh("true"),
		s.client.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch upsert", res)
	}

	s.logger.Debug("upserted product", slog.Int64("id", p.ID), slog.String("name", p.Name))
	return nil
}

// BulkUpsert upserts products with the bulk NDJSON API.
func (s *Store) BulkUpsert(ctx context.Context, products []domain.Product) (err error) {
	if len(products) == 0 {
		return nil
	}

	ctx, end := database.Trace(ctx, database.SystemElasticsearch, "BulkUpsertProducts", s.indexName)
	defer func() { end(err) }()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range products {
		action := map[string]any{"update": map[string]any{"_index": s.indexName, "_id": docID(products[i].ID)}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk upsert: encode action: %w", err)
		}
		if err := enc.Encode(s.updateBody(&products[i])); err != nil {
			return fmt.Errorf("elasticsearch bulk upsert: encode document: %w", err)
		}
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithIndex(s.indexName),
		s.client.Bulk.WithRefresh("true"),
		s.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk upsert: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch bulk upsert", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk upsert: decode response: %w", err)
	}
	if bulkResp.Errors {
		var msgs []string
		for _, item := range bulkResp.Items {
			for _, result := range item {
				if result.Error.Type != "" {
					msgs = append(msgs, fmt.Sprintf("id=%s: %s: %s", result.ID, result.Error.Type, result.Error.Reason))
				}
			}
		}
		return fmt.Errorf("elasticsearch bulk upsert: partial errors: %s", strings.Join(msgs, "; "))
	}

	s.logger.Info("bulk upserted products", slog.Int("count", len(products)))
	return nil
}

// Delete removes a product document.
func (s *Store) Delete(ctx context.Context, id int64) (err error) {
	ctx, end := database.Trace(ctx, database.SystemElasticsearch, "DeleteProduct", s.indexName)
	defer func() { end(err) }()

	res, err := s.client.Delete(
		s.indexName,
		docID(id),
		s.client.Delete.WithRefresh("true"),
		s.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return apperrors.NotFound("product", id)
	}
	if res.IsError() {
		return responseError("elasticsearch delete", res)
	}
	return nil
}

// Get fetches a product document by ID.
func (s *Store) Get(ctx context.Context, id int64) (_ *domain.Product, err error) {
	ctx, end := database.Trace(ctx, database.SystemElasticsearch, "GetProduct", s.indexName)
	defer func() { end(err) }()

	res, err := s.client.Get(s.indexName, docID(id), s.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFound("product", id)
	}
	if res.IsError() {
		return nil, responseError("elasticsearch get", res)
	}

	var doc struct {
		Source domain.Product `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("elasticsearch get: decode response: %w", err)
	}
	return &doc.Source, nil
}

// List pages through the whole index sorted by position using search_after.
func (s *Store) List(ctx context.Context) (_ []domain.Product, err error) {
	ctx, end := database.Trace(ctx, database.SystemElasticsearch, "ListProducts", s.indexName)
	defer func() { end(err) }()

	products := make([]domain.Product, 0)
	var after []any
	for {
		query := map[string]any{
			"query": map[string]any{"match_all": map[string]any{}},
			"size":  listPageSize,
			"sort": []any{
				map[string]any{"position": "asc"},
				map[string]any{"id": "asc"},
			},
		}
		if after != nil {
			query["search_after"] = after
		}

		page, err := s.search(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, hit := range page.Hits.Hits {
			products = append(products, hit.Source)
		}
		if len(page.Hits.Hits) < listPageSize {
			return products, nil
		}
		after = page.Hits.Hits[len(page.Hits.Hits)-1].Sort
	}
}

func (s *Store) search(ctx context.Context, query map[string]any) (*esSearchResponse, error) {
	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(bytes.NewReader(data)),
		s.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("elasticsearch search", res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}
	return &esResp, nil
}

// Count returns the number of documents in the index.
func (s *Store) Count(ctx context.Context) (_ int, err error) {
	ctx, end := database.Trace(ctx, database.SystemElasticsearch, "CountProducts", s.indexName)
	defer func() { end(err) }()

	res, err := s.client.Count(s.client.Count.WithIndex(s.indexName), s.client.Count.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("elasticsearch count: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return 0, responseError("elasticsearch count", res)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("elasticsearch count: decode response: %w", err)
	}
	return body.Count, nil
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// responseError decodes an Elasticsearch error body. 503 and 429 map to
// service unavailable so handlers report the dependency outage.
func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	var err error
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		err = fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	} else {
		err = fmt.Errorf("%s: unexpected status %s", op, res.Status())
	}
	if res.StatusCode == http.StatusServiceUnavailable || res.StatusCode == http.StatusTooManyRequests {
		return apperrors.Unavailable("elasticsearch unavailable", err)
	}
	return err
}
