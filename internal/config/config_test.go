package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.CatalogBackend)
	assert.True(t, cfg.CatalogSeed)
	assert.Equal(t, "<mark>", cfg.HighlightOpenTag)
	assert.Equal(t, "</mark>", cfg.HighlightCloseTag)
	assert.Equal(t, "http://localhost:9200", cfg.ElasticsearchURL)
	assert.Equal(t, "storefront_products", cfg.ElasticsearchIndex)
	assert.Equal(t, "storefront", cfg.PostgresUser)
	assert.Equal(t, 5*time.Minute, cfg.SuggestCacheTTL)
	assert.Equal(t, "http://localhost:8080", cfg.ProductServiceURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled)
	assert.False(t, cfg.RedisEnabled)
	assert.InDelta(t, 1.0, cfg.OTELSampleRate, 1e-9)
	assert.Equal(t, "*", cfg.CORSAllowedOrigins)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"SEARCH_HTTP_PORT":     "9000",
		"CATALOG_BACKEND":      "elasticsearch",
		"CATALOG_SEED":         "false",
		"KAFKA_ENABLED":        "true",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"SUGGEST_CACHE_TTL":    "30s",
		"HIGHLIGHT_OPEN_TAG":   "<em>",
		"HIGHLIGHT_CLOSE_TAG":  "</em>",
		"SCORING_WEIGHTS_FILE": "/etc/search/weights.yaml",
	})

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, BackendElasticsearch, cfg.CatalogBackend)
	assert.False(t, cfg.CatalogSeed)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.SuggestCacheTTL)
	assert.Equal(t, "<em>", cfg.HighlightOpenTag)
	assert.Equal(t, "/etc/search/weights.yaml", cfg.ScoringWeightsFile)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{"port zero", map[string]string{"SEARCH_HTTP_PORT": "0"}, "invalid HTTP port"},
		{"port too large", map[string]string{"SEARCH_HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"unknown backend", map[string]string{"CATALOG_BACKEND": "mongo"}, "invalid CATALOG_BACKEND"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "2.0"}, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0"},
		{"negative ttl", map[string]string{"SUGGEST_CACHE_TTL": "-1s"}, "SUGGEST_CACHE_TTL must be positive"},
		{"malformed port", map[string]string{"SEARCH_HTTP_PORT": "abc"}, "load search config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(tt.vars)

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("SEARCH_HTTP_PORT", "8123")
	t.Setenv("CATALOG_BACKEND", "postgres")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.HTTPPort)
	assert.Equal(t, BackendPostgres, cfg.CatalogBackend)
}
