package service

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records search-domain counters. A nil *Metrics records nothing.
type Metrics struct {
	searches      *prometheus.CounterVec
	searchResults prometheus.Histogram
	searchLatency prometheus.Histogram
	suggestCache  *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	reindexed     prometheus.Counter
}

// NewMetrics creates and registers the search collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Search requests, labelled by whether a term was given.",
		}, []string{"has_term"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_results_count",
			Help:    "Number of matching products per search.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
		}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Time spent ranking and paginating a search.",
			Buckets: prometheus.DefBuckets,
		}),
		suggestCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_suggest_cache_total",
			Help: "Suggestion cache lookups by result.",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_catalog_mutations_total",
			Help: "Catalog writes by operation.",
		}, []string{"operation"}),
		reindexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "search_reindexed_products_total",
			Help: "Products written by reindex runs.",
		}),
	}
	reg.MustRegister(m.searches, m.searchResults, m.searchLatency, m.suggestCache, m.mutations, m.reindexed)
	return m
}

func (m *Metrics) observeSearch(hasTerm bool, total int, d time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(strconv.FormatBool(hasTerm)).Inc()
	m.searchResults.Observe(float64(total))
	m.searchLatency.Observe(d.Seconds())
}

func (m *Metrics) cacheResult(result string) {
	if m == nil {
		return
	}
	m.suggestCache.WithLabelValues(result).Inc()
}

func (m *Metrics) mutation(op string, n int) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Add(float64(n))
}

func (m *Metrics) reindex(n int) {
	if m == nil {
		return
	}
	m.reindexed.Add(float64(n))
}
