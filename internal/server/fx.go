// Package server builds the service's dependencies and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/lockss-laaws/internal/api"
	"github.com/JakeFAU/lockss-laaws/internal/clock/system"
	"github.com/JakeFAU/lockss-laaws/internal/config"
	"github.com/JakeFAU/lockss-laaws/internal/dispatcher"
	"github.com/JakeFAU/lockss-laaws/internal/id/uuid"
	"github.com/JakeFAU/lockss-laaws/internal/jobs"
	"github.com/JakeFAU/lockss-laaws/internal/logging"
	"github.com/JakeFAU/lockss-laaws/internal/metrics"
	memorypublisher "github.com/JakeFAU/lockss-laaws/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/lockss-laaws/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/lockss-laaws/internal/queue/memory"
	"github.com/JakeFAU/lockss-laaws/internal/ratelimit"
	memoryStorage "github.com/JakeFAU/lockss-laaws/internal/storage/memory"
	pgstore "github.com/JakeFAU/lockss-laaws/internal/storage/postgres"
	"github.com/JakeFAU/lockss-laaws/internal/store"
	"github.com/JakeFAU/lockss-laaws/internal/telemetry"
	"github.com/JakeFAU/lockss-laaws/internal/worker"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// metadataBackend is what the service needs from a metadata store.
type metadataBackend interface {
	store.MetadataReader
	store.MetadataWriter
	store.AuCatalog
}

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	handler   http.Handler
	dispatch  *dispatcher.Dispatcher
	queue     *queueMemory.Queue
	metadata  metadataBackend
	pgStore   *pgstore.MetadataStore
	publisher jobs.Publisher
	tracer    *sdktrace.TracerProvider

	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     cfg.Telemetry.Version,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.OTLPInsecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}

	app := &App{cfg: cfg, logger: logger, tracer: tp}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
		zap.Bool("ratelimit_enabled", cfg.RateLimit.Enabled),
	)

	if err := setupMetadata(ctx, app); err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	if err := setupPublisher(ctx, app); err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	clock := system.New()
	jobStore := memoryStorage.NewJobStore()
	app.queue = queueMemory.NewQueue(cfg.Jobs.QueueDepth)
	app.dispatch = setupDispatcher(app, jobStore, clock)
	manager := jobs.NewManager(
		jobStore,
		app.dispatch,
		app.metadata,
		uuid.New(),
		clock,
		app.publisher,
		jobs.ManagerConfig{Topic: cfg.PubSub.TopicName},
		logger,
	)

	deps := api.Deps{
		Metadata: app.metadata,
		Jobs:     manager,
		Polls:    memoryStorage.NewPollManager(app.metadata, uuid.New(), clock),
	}
	if app.pgStore != nil {
		deps.Ready = app.pgStore.Ping
	}
	if cfg.RateLimit.Enabled {
		deps.Limiter = ratelimit.New(ratelimit.Config{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst})
		logger.Info("rate limiter enabled",
			zap.Float64("rps", cfg.RateLimit.RPS),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}

	apiServer := api.NewServer(deps, *cfg, logger)
	app.handler = otelhttp.NewHandler(apiServer.Handler(), "laaws")
	return app, nil
}

// Handler returns the instrumented HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the application and blocks until the context is canceled or
// a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		a.logger.Info("dispatcher started", zap.Int("workers", a.dispatch.Size()))
		a.dispatch.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.queue.Close()
	<-dispatchDone
	a.Close(shutdownCtx)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve http: %w", err)
	default:
		return nil
	}
}

// Close releases infrastructure clients, flushes pending spans and syncs
// the logger.
func (a *App) Close(ctx context.Context) {
	a.closeInfrastructure()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("tracer shutdown failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
}

func (a *App) closeInfrastructure() {
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	a.pgStore.Close()
}

func setupMetadata(ctx context.Context, app *App) error {
	db := app.cfg.Database
	if db.DSN == "" {
		app.logger.Warn("no database DSN configured, keeping metadata in memory")
		app.metadata = memoryStorage.NewMetadataStore()
		return nil
	}
	pg, err := pgstore.NewMetadataStore(ctx, pgstore.MetadataStoreConfig{
		DSN:             db.DSN,
		ItemsTable:      db.ItemsTable,
		AuTable:         db.AuTable,
		MaxConns:        db.MaxConns,
		MinConns:        db.MinConns,
		MaxConnLifetime: db.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("metadata store init failed: %w", err)
	}
	app.pgStore = pg
	app.metadata = pg
	app.logger.Info("postgres metadata store initialized",
		zap.String("items_table", db.ItemsTable),
		zap.String("au_table", db.AuTable),
	)
	return nil
}

func setupPublisher(ctx context.Context, app *App) error {
	ps := app.cfg.PubSub
	if ps.TopicName == "" || ps.ProjectID == "" {
		app.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		app.publisher = memorypublisher.New()
		return nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, ps.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubPublisher = app.pubsubClient.Publisher(ps.TopicName)
	app.publisher = gcppublisher.New(app.pubsubPublisher)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", ps.ProjectID),
		zap.String("topic", ps.TopicName),
	)
	return nil
}

func setupDispatcher(app *App, jobStore worker.StatusUpdater, clock jobs.Clock) *dispatcher.Dispatcher {
	extractor := jobs.NewStoreExtractor(app.metadata)
	workerCfg := worker.Config{Topic: app.cfg.PubSub.TopicName}

	workers := make([]*worker.Worker, 0, app.cfg.Jobs.Workers)
	for i := range app.cfg.Jobs.Workers {
		workers = append(workers, worker.New(
			app.queue,
			jobStore,
			extractor,
			app.publisher,
			clock,
			workerCfg,
			app.logger.With(zap.Int("index", i)),
		))
	}
	return dispatcher.New(app.queue, workers)
}
