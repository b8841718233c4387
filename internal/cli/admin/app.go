package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/askdesk/internal/config"
	"github.com/cloo-solutions/askdesk/internal/database"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/extract"
	"github.com/cloo-solutions/askdesk/internal/index"
	"github.com/cloo-solutions/askdesk/internal/jobs"
	"github.com/cloo-solutions/askdesk/internal/logging"
	"github.com/cloo-solutions/askdesk/internal/metrics"
	"github.com/cloo-solutions/askdesk/internal/openai"
	"github.com/cloo-solutions/askdesk/internal/repository"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/cloo-solutions/askdesk/internal/storage"
	"github.com/cloo-solutions/askdesk/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// cliRequester is the identity used for work started from the command line.
var cliRequester = domain.Requester{ID: "askdesk-cli", Role: domain.RoleAdmin}

// app holds the wired services shared by serve and the one-shot commands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	pool    *pgxpool.Pool
	metrics *metrics.Metrics

	documentRepo *repository.DocumentRepository
	dispatcher   *jobs.Dispatcher
	knowledge    *service.KnowledgeService
	documents    *service.DocumentService
	queries      *service.QueryEngine

	closers []func()
}

type appOptions struct {
	migrate bool
}

func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	// An unwritable log file degrades to stderr rather than blocking the command.
	return cfg, logging.Must(logging.Config{Debug: cfg.Debug, File: cfg.LogFile}), nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: lo.Ternary(cfg.Environment == "development", 1.0, 0.1),
		Debug:            cfg.Debug,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTelemetry)

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)
	logger.Info("connected to database")

	if opts.migrate {
		if _, err := database.MigrateUp(cfg.DatabaseURL, logger); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var (
		embedder   service.EmbeddingClient
		summarizer service.Summarizer
		completion service.CompletionClient
	)
	if cfg.HasOpenAI() {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			ChatModel:           cfg.ChatModel,
			EmbeddingsPerSecond: cfg.EmbeddingsPerSecond,
		})
		embedder, summarizer, completion = client, client, client
	} else {
		logger.Warn("no OpenAI API key configured; ingestion will fail and queries fall back to curated knowledge")
	}

	var vectorIndex service.EmbeddingIndex
	if cfg.UsesMemoryIndex() {
		vectorIndex = index.NewMemoryIndex()
		logger.Warn("using in-process vector index; embeddings are lost on restart")
	} else {
		vectorIndex = repository.NewDocumentChunkRepository(pool)
	}

	a.documentRepo = repository.NewDocumentRepository(pool)
	knowledgeRepo := repository.NewKnowledgeItemRepository(pool)
	queryRepo := repository.NewQueryRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	pipeline := service.NewIngestionPipeline(service.IngestionDeps{
		Documents:  a.documentRepo,
		Store:      store,
		Extractor:  extract.NewExtractor(),
		Summarizer: summarizer,
		Embedder:   embedder,
		Index:      vectorIndex,
		Metrics:    a.metrics,
	}, service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}, cfg.EmbeddingModel, logger.Named("ingestion"))

	a.dispatcher = jobs.NewDispatcher(pipeline, cfg.IngestionConcurrency, logger.Named("dispatcher"))

	a.documents = service.NewDocumentService(a.documentRepo, store, a.dispatcher, vectorIndex, service.DocumentLimits{
		MaxUploadBytes:   cfg.MaxUploadBytes,
		AllowedFileTypes: cfg.AllowedFileTypes,
	}, logger.Named("documents"))

	a.knowledge = service.NewKnowledgeService(knowledgeRepo, txRunner, logger.Named("knowledge"))

	rag := cfg.RAG()
	a.queries = service.NewQueryEngine(service.QueryDeps{
		Knowledge:  knowledgeRepo,
		Documents:  a.documentRepo,
		Queries:    queryRepo,
		TxRunner:   txRunner,
		Embedder:   embedder,
		Index:      vectorIndex,
		Completion: completion,
		Metrics:    a.metrics,
	}, service.RAGConfig{
		RelevanceThreshold:   lo.ToPtr(rag.RelevanceThreshold),
		ConfidenceBoost:      rag.ConfidenceBoost,
		MaxContextDocuments:  rag.MaxContextDocuments,
		CitationExcerptChars: rag.CitationExcerptChars,
	}, logger.Named("query"))

	return a, nil
}

func newObjectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.ObjectStore, error) {
	if !cfg.HasS3() {
		logger.Warn("no S3 storage configured; uploaded files are kept in memory")
		return storage.NewMemoryStore(), nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	logger.Info("S3 bucket ready", zap.String("bucket", cfg.S3Bucket))
	return client, nil
}

// shutdown cancels running ingestion tasks, waiting at most timeout.
func (a *app) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if n := a.dispatcher.InFlight(); n > 0 {
		a.logger.Info("cancelling in-flight ingestion runs", zap.Int("count", n))
	}
	if err := a.dispatcher.Shutdown(ctx); err != nil {
		a.logger.Warn("ingestion tasks did not stop in time", zap.Error(err))
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}
