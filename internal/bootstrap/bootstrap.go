package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/smart-file-explorer/internal/config"
	"github.com/kirillkom/smart-file-explorer/internal/core/ports"
	"github.com/kirillkom/smart-file-explorer/internal/core/usecase"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/cache/rediscache"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/extractor"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/llm/openrouter"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/metadata/blobstore"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/resilience"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/storage/minio"
	"github.com/kirillkom/smart-file-explorer/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Files       *usecase.FileService
	Events      *nats.Bus
	HTTPMetrics *metrics.HTTPServerMetrics

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	app.HTTPMetrics = metrics.NewHTTPServerMetrics("api")
	enrichment := metrics.NewEnrichmentMetrics(app.HTTPMetrics.Registerer())
	executorOpts := []resilience.Option{
		resilience.WithLogger(logger),
		resilience.WithStateObserver(enrichment.SetBreakerOpen),
	}

	store, err := newObjectStore(cfg, logger, executorOpts)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	meta, err := app.newMetadataStore(ctx, cfg, store)
	if err != nil {
		app.Close()
		return nil, err
	}
	index := usecase.NewIndex(meta, logger, usecase.WithSharedStore(cfg.MetadataShared))
	index.Load(ctx)

	inference := newChatCompleter(cfg, logger,
		resilience.NewExecutor(resilience.InferenceConfig(cfg.InferenceBreakerEnabled), executorOpts...))

	classifier := usecase.NewClassifier(
		enrichment.InstrumentCompleter("classify", inference),
		cfg.InferenceModel(),
		cfg.ClassifyTimeout(),
		logger,
	)
	summarizer := usecase.NewSummarizer(
		enrichment.InstrumentCompleter("summarize", inference),
		cfg.InferenceModel(),
		cfg.SummaryMaxChars,
		cfg.SummarizeTimeout(),
		logger,
	)

	opts := usecase.FileServiceOptions{
		ReservedKey:      cfg.MetadataKey,
		PersistSummaries: cfg.SummaryPersist,
		SummaryCacheTTL:  cfg.SummaryCacheTTL(),
		Recorder:         enrichment,
		Logger:           logger,
	}

	if cfg.RedisURL != "" {
		cache, err := rediscache.New(ctx, cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init summary cache: %w", err)
		}
		app.closeFns = append(app.closeFns, func() { _ = cache.Close() })
		opts.Cache = cache
	}

	if cfg.NATSURL != "" {
		bus, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:               "smart-file-explorer",
			ResilienceExecutor: resilience.NewExecutor(resilience.StorageConfig(), executorOpts...),
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init event bus: %w", err)
		}
		app.closeFns = append(app.closeFns, bus.Close)
		app.Events = bus
		opts.Events = bus
	}

	app.Files = usecase.NewFileService(store, index, extractor.New(logger), classifier, summarizer, opts)

	logger.Info("bootstrap.ready",
		"object_store", cfg.ObjectStore,
		"metadata_backend", cfg.MetadataBackend,
		"inference_provider", cfg.InferenceProvider,
		"summary_persist", cfg.SummaryPersist,
		"summary_cache", cfg.RedisURL != "",
		"events", cfg.NATSURL != "",
	)
	return app, nil
}

func newChatCompleter(cfg config.Config, logger *slog.Logger, executor *resilience.Executor) ports.ChatCompleter {
	if cfg.InferenceProvider == "ollama" {
		return ollama.New(cfg.OllamaURL, executor, logger)
	}
	if cfg.OpenRouterAPIKey == "" {
		logger.Warn("bootstrap.openrouter_api_key_missing", "effect", "unknown extensions will be tagged unknown")
	}
	return openrouter.New(openrouter.Config{
		BaseURL: cfg.OpenRouterURL,
		APIKey:  cfg.OpenRouterAPIKey,
		AppURL:  cfg.OpenRouterAppURL,
		AppName: cfg.OpenRouterAppName,
	}, executor, logger)
}

func newObjectStore(cfg config.Config, logger *slog.Logger, executorOpts []resilience.Option) (ports.ObjectStore, error) {
	switch cfg.ObjectStore {
	case "localfs":
		store, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init local object storage: %w", err)
		}
		return store, nil
	default:
		store, err := minio.New(minio.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.BucketName,
		}, resilience.NewExecutor(resilience.StorageConfig(), executorOpts...), logger)
		if err != nil {
			return nil, fmt.Errorf("init minio object storage: %w", err)
		}
		return store, nil
	}
}

func (a *App) newMetadataStore(ctx context.Context, cfg config.Config, store ports.ObjectStore) (ports.MetadataStore, error) {
	if cfg.MetadataBackend != "postgres" {
		meta, err := blobstore.New(store, cfg.MetadataKey)
		if err != nil {
			return nil, fmt.Errorf("init metadata blob store: %w", err)
		}
		return meta, nil
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.closeFns = append(a.closeFns, func() { _ = db.Close() })

	repo := postgres.NewMetadataRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
