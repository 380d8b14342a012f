package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	rediscache "github.com/utafrali/storefront-search/internal/cache/redis"
	"github.com/utafrali/storefront-search/internal/catalog"
	esstore "github.com/utafrali/storefront-search/internal/catalog/elasticsearch"
	"github.com/utafrali/storefront-search/internal/catalog/memory"
	pgstore "github.com/utafrali/storefront-search/internal/catalog/postgres"
	"github.com/utafrali/storefront-search/internal/catalog/seed"
	"github.com/utafrali/storefront-search/internal/config"
	"github.com/utafrali/storefront-search/internal/event"
	handler "github.com/utafrali/storefront-search/internal/handler/http"
	"github.com/utafrali/storefront-search/internal/relevance"
	"github.com/utafrali/storefront-search/internal/service"
	"github.com/utafrali/storefront-search/migrations"
	"github.com/utafrali/storefront-search/pkg/database"
	"github.com/utafrali/storefront-search/pkg/health"
	"github.com/utafrali/storefront-search/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront-search/pkg/kafka"
	"github.com/utafrali/storefront-search/pkg/middleware"
	"github.com/utafrali/storefront-search/pkg/tracing"
)

// ServiceName identifies the service in logs, metrics, and traces.
const ServiceName = "search-service"

const (
	consumerGroup      = "search-service"
	slowQueryThreshold = 200 * time.Millisecond
	shutdownTimeout    = 10 * time.Second
)

// App wires together all dependencies and runs the search service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	consumers  []*pkgkafka.Consumer
	httpServer *http.Server
	closers    []func() error
	tracerStop func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeAll()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tcfg := tracing.DefaultConfig(ServiceName)
	tcfg.Enabled = cfg.OTELEnabled
	tcfg.Environment = cfg.Environment
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	a.tracerStop, err = tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	database.SetSlowQueryLogging(slowQueryThreshold, logger)

	healthHandler := health.NewHandler()

	store, err := a.newStore(ctx, reg, healthHandler)
	if err != nil {
		return nil, err
	}

	if cfg.CatalogSeed {
		if _, err := seed.Load(ctx, store, logger); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
	}

	weights, err := relevance.LoadWeights(cfg.ScoringWeightsFile)
	if err != nil {
		return nil, fmt.Errorf("load scoring weights: %w", err)
	}

	productClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("product-service"),
		logger,
		httpclient.NewBreakerMetrics(reg),
	)

	opts := []service.Option{
		service.WithScorer(relevance.NewScorer(weights)),
		service.WithHighlighter(relevance.NewHighlighter(cfg.HighlightOpenTag, cfg.HighlightCloseTag)),
		service.WithMetrics(service.NewMetrics(reg)),
		service.WithProductSource(service.ProductSource{BaseURL: cfg.ProductServiceURL, Client: productClient}),
	}

	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)

		cache := rediscache.NewSuggestCache(client, cfg.SuggestCacheTTL)
		opts = append(opts, service.WithCache(cache))
		healthHandler.RegisterOptional("redis", cache.Ping)
		logger.Info("redis suggestion cache enabled", slog.String("addr", client.Options().Addr))
	}

	searchService := service.NewSearchService(store, logger, opts...)

	if cfg.KafkaEnabled {
		a.initConsumers(searchService, reg, healthHandler)
	}

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    ServiceName,
		Service:        searchService,
		Health:         healthHandler,
		Logger:         logger,
		Registry:       reg,
		AllowedOrigins: middleware.ParseOrigins(cfg.CORSAllowedOrigins),
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// newStore opens the configured catalog backend and registers its health check.
func (a *App) newStore(ctx context.Context, reg prometheus.Registerer, hh *health.Handler) (catalog.Store, error) {
	cfg := a.cfg
	switch cfg.CatalogBackend {
	case config.BackendPostgres:
		pgCfg := database.DefaultPostgresConfig()
		pgCfg.Host = cfg.PostgresHost
		pgCfg.Port = cfg.PostgresPort
		pgCfg.User = cfg.PostgresUser
		pgCfg.Password = cfg.PostgresPassword
		pgCfg.DBName = cfg.PostgresDB
		pgCfg.SSLMode = cfg.PostgresSSLMode

		pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(reg, pool, ServiceName); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
		hh.Register("postgres", pool.Ping)

		a.logger.Info("postgres catalog initialized",
			slog.String("host", cfg.PostgresHost),
			slog.String("database", cfg.PostgresDB),
		)
		return pgstore.New(pool), nil

	case config.BackendElasticsearch:
		store, err := esstore.New(ctx, cfg.ElasticsearchURL, cfg.ElasticsearchIndex, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch catalog: %w", err)
		}
		hh.Register("elasticsearch", store.Ping)

		a.logger.Info("elasticsearch catalog initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		return store, nil

	default:
		a.logger.Info("in-memory catalog initialized")
		return memory.New(), nil
	}
}

// initConsumers creates one consumer per product topic. Messages that keep
// failing are dead-lettered.
func (a *App) initConsumers(indexer event.Indexer, reg prometheus.Registerer, hh *health.Handler) {
	brokers := a.cfg.KafkaBrokers
	eventConsumer := event.NewConsumer(indexer, a.logger)
	dlq := pkgkafka.NewDLQProducer(brokers, a.logger)
	a.closers = append(a.closers, dlq.Close)
	metrics := pkgkafka.NewConsumerMetrics(reg)

	for _, topic := range event.Topics() {
		consumerCfg := pkgkafka.ConsumerConfig{
			Brokers:  brokers,
			GroupID:  consumerGroup,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}
		c := pkgkafka.NewConsumer(consumerCfg, eventConsumer.Handle, a.logger,
			pkgkafka.WithDeadLetter(dlq),
			pkgkafka.WithMetrics(metrics),
		)
		a.consumers = append(a.consumers, c)
	}

	hh.RegisterOptional("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, brokers)
	})

	a.logger.Info("kafka consumers initialized",
		slog.Any("brokers", brokers),
		slog.Int("topic_count", len(a.consumers)),
	)
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	// Start Kafka consumers in background goroutines.
	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer %s: %w", c.Topic(), err)
			}
		}()
	}

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Close Kafka consumers.
	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}

	if err := a.tracerStop(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeAll releases backend clients in reverse order of creation.
func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
