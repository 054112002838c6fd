package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anime-shed/media-inspector-go/internal/analysis"
	"github.com/anime-shed/media-inspector-go/internal/config"
	"github.com/anime-shed/media-inspector-go/internal/credential"
	"github.com/anime-shed/media-inspector-go/internal/factory"
	"github.com/anime-shed/media-inspector-go/internal/logger"
	"github.com/anime-shed/media-inspector-go/internal/observer"
	"github.com/anime-shed/media-inspector-go/internal/providers/google"
	"github.com/anime-shed/media-inspector-go/internal/repository"
	"github.com/anime-shed/media-inspector-go/internal/service"
	"github.com/anime-shed/media-inspector-go/internal/transport"
	"github.com/anime-shed/media-inspector-go/internal/worker"
	"github.com/anime-shed/media-inspector-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config            *config.Config
	credentials       *credential.Store
	events            *observer.EventPublisher
	metrics           *observer.MetricsObserver
	pipeline          *analysis.Pipeline
	db                *pgxpool.Pool
	history           repository.HistoryRepository
	pool              *worker.WorkerPool
	analysisService   service.AnalysisService
	credentialService service.CredentialService
	handler           http.Handler
}

// Option overrides a dependency before the graph is built
type Option func(*options)

type options struct {
	backend credential.Backend
}

// WithCredentialBackend replaces the credential file, e.g. with a memory backend
func WithCredentialBackend(b credential.Backend) Option {
	return func(o *options) { o.backend = b }
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	o := options{backend: credential.NewFileBackend(cfg.CredentialFile)}
	for _, opt := range opts {
		opt(&o)
	}

	components := factory.NewComponentFactory(cfg)

	// Provider client and credential
	client := google.NewClient(cfg.RequestTimeout)
	store, err := credential.Open(o.backend, google.NewProber(client, cfg.Google.SpeechBaseURL))
	if err != nil {
		return nil, err
	}
	store.Subscribe(func(token string) {
		logger.WithField("configured", token != "").Debug("Credential updated")
	})

	// Events
	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	// Pipeline
	adapters, err := components.AdapterFactory.CreateAll()
	if err != nil {
		return nil, fmt.Errorf("failed to create adapters: %w", err)
	}
	router, err := components.StorageFactory.CreateRouter(ctx)
	if err != nil {
		return nil, err
	}
	pipeline := analysis.NewPipeline(store, client, router, events, adapters...)
	if len(cfg.AllowedMediaHosts) > 0 {
		pipeline.UseURLValidator(validation.NewURLValidatorWithOptions(validation.DefaultSchemes, cfg.AllowedMediaHosts))
	}

	c := &Container{
		config:      cfg,
		credentials: store,
		events:      events,
		metrics:     metrics,
		pipeline:    pipeline,
	}

	// History
	if err := c.openHistory(ctx); err != nil {
		return nil, err
	}

	c.pool = worker.NewWorkerPool(cfg.BatchWorkers)
	c.pool.Start()

	c.analysisService = service.NewAnalysisService(pipeline, c.history, c.pool)
	c.credentialService = service.NewCredentialService(store, cfg.ValidateTimeout)
	c.handler = transport.NewHandler(c.analysisService, c.credentialService, metrics, cfg)

	return c, nil
}

func (c *Container) openHistory(ctx context.Context) error {
	if c.config.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, keeping history in memory")
		c.history = repository.NewMemoryHistoryRepository()
		return nil
	}

	db, err := pgxpool.New(ctx, c.config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", repository.ErrRepositoryUnavailable, err)
	}

	repo := repository.NewPostgresHistoryRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return err
	}
	c.db = db
	c.history = repo
	return nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) AnalysisService() service.AnalysisService {
	return c.analysisService
}

func (c *Container) CredentialService() service.CredentialService {
	return c.credentialService
}

// Metrics returns the aggregated analysis counters
func (c *Container) Metrics() map[string]interface{} {
	return c.metrics.GetMetrics()
}

// Close waits for queued batch jobs, then releases the worker pool and database.
func (c *Container) Close() {
	c.pool.Wait()
	c.pool.Close()
	if c.db != nil {
		c.db.Close()
	}
}
