package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectMetric returns the first metric from c whose labels include all of
// labels, or nil.
func collectMetric(c prometheus.Collector, labels map[string]string) *dto.Metric {
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		matched := 0
		for _, lp := range d.GetLabel() {
			if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return d
		}
	}
	return nil
}

func countMetrics(c prometheus.Collector) int {
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)
	n := 0
	for range ch {
		n++
	}
	return n
}

func counterValue(t *testing.T, c prometheus.Collector, labels map[string]string) float64 {
	t.Helper()
	m := collectMetric(c, labels)
	require.NotNil(t, m, "no metric with labels %v", labels)
	return m.GetCounter().GetValue()
}

func gaugeValue(c prometheus.Collector) float64 {
	if m := collectMetric(c, nil); m != nil {
		return m.GetGauge().GetValue()
	}
	return -1
}

func metricsRouter(m *HTTPMetrics, status int) *chi.Mux {
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/search/related/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	return r
}

func TestHTTPMetrics_CountsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "search-service")
	router := metricsRouter(m, http.StatusOK)

	for _, id := range []string{"1", "2", "3"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/search/related/"+id, nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	got := counterValue(t, m.requests, map[string]string{"method": "GET", "route": "/api/v1/search/related/{id}", "status": "200"})
	assert.Equal(t, float64(3), got)
	assert.Equal(t, 1, countMetrics(m.requests))
}

func TestHTTPMetrics_RecordsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "search-service")
	router := metricsRouter(m, http.StatusNotFound)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/search/related/9", nil))

	got := counterValue(t, m.requests, map[string]string{"route": "/api/v1/search/related/{id}", "status": "404"})
	assert.Equal(t, float64(1), got)
	assert.Equal(t, 1, countMetrics(m.duration))
}

func TestHTTPMetrics_InFlightDuringRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "search-service")

	var seen float64
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = gaugeValue(m.inFlight)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, float64(1), seen)
	assert.Equal(t, float64(0), gaugeValue(m.inFlight))
}

func TestHTTPMetrics_UnmatchedRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "search-service")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))

	assert.Equal(t, float64(1), counterValue(t, m.requests, map[string]string{"route": "unmatched", "status": "200"}))
}

func TestNewHTTPMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewHTTPMetrics(reg, "search-service")

	assert.Panics(t, func() { NewHTTPMetrics(reg, "search-service") })
}

type flushHijackWriter struct {
	http.ResponseWriter
	flushed, hijacked bool
}

func (f *flushHijackWriter) Flush() { f.flushed = true }

func (f *flushHijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	f.hijacked = true
	return nil, nil, nil
}

type bareWriter struct{ header http.Header }

func (b *bareWriter) Header() http.Header {
	if b.header == nil {
		b.header = make(http.Header)
	}
	return b.header
}
func (b *bareWriter) Write(p []byte) (int, error) { return len(p), nil }
func (b *bareWriter) WriteHeader(int)             {}

func TestStatusRecorder_Delegation(t *testing.T) {
	under := &flushHijackWriter{ResponseWriter: httptest.NewRecorder()}
	rec := newStatusRecorder(under)

	rec.Flush()
	_, _, err := rec.Hijack()

	assert.NoError(t, err)
	assert.True(t, under.flushed)
	assert.True(t, under.hijacked)
	assert.Equal(t, under, rec.Unwrap())
}

func TestStatusRecorder_HijackUnsupported(t *testing.T) {
	rec := newStatusRecorder(&bareWriter{})

	rec.Flush()
	_, _, err := rec.Hijack()
	assert.ErrorIs(t, err, http.ErrNotSupported)
}

func TestStatusRecorder_FirstStatusWins(t *testing.T) {
	rec := newStatusRecorder(&bareWriter{})
	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusInternalServerError)
	_, _ = rec.Write([]byte("abc"))

	assert.Equal(t, http.StatusAccepted, rec.status)
	assert.Equal(t, 3, rec.bytes)
}

func TestStatusRecorder_ReusesExisting(t *testing.T) {
	rec := newStatusRecorder(&bareWriter{})
	assert.Same(t, rec, newStatusRecorder(rec))
}
