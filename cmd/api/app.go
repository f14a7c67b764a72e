package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/popchoice/popchoice/internal/api/handlers"
	"github.com/popchoice/popchoice/internal/api/middleware"
	"github.com/popchoice/popchoice/internal/bootstrap"
	"github.com/popchoice/popchoice/internal/config"
	"github.com/popchoice/popchoice/internal/observability"
	"github.com/popchoice/popchoice/internal/repository"
	"github.com/popchoice/popchoice/internal/service"
	"github.com/popchoice/popchoice/internal/workers"
)

const component = "api"

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	river          *river.Client[pgx.Tx]
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// setupObservability creates the meter and tracer providers enabled by cfg and
// installs them globally. Disabled providers are nil.
func setupObservability(cfg *config.Config) (*sdkmetric.MeterProvider, *sdktrace.TracerProvider, *observability.Metrics, error) {
	var metrics *observability.Metrics

	meterProvider, err := observability.NewMeterProvider(cfg, component)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if meterProvider == nil {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or not otlp)")
	} else {
		otel.SetMeterProvider(meterProvider)

		metrics, err = observability.NewMetrics(meterProvider.Meter(observability.TracerName))
		if err != nil {
			_ = observability.ShutdownMeterProvider(context.Background(), meterProvider)

			return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
		}
	}

	tracerProvider, err := observability.NewTracerProvider(cfg, component)
	if err != nil {
		_ = observability.ShutdownMeterProvider(context.Background(), meterProvider)

		return nil, nil, nil, fmt.Errorf("create tracer provider: %w", err)
	}

	if tracerProvider == nil {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		otel.SetTracerProvider(tracerProvider)
	}

	return meterProvider, tracerProvider, metrics, nil
}

// NewApp builds and wires all components. It does not start the HTTP server or River;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	meterProvider, tracerProvider, metrics, err := setupObservability(cfg)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			if obsErr := shutdownObservability(context.Background(), tracerProvider, meterProvider); obsErr != nil {
				slog.Error("shutdown observability after init error", "error", obsErr)
			}
		}
	}()

	var (
		pipelineMetrics observability.PipelineMetrics
		ingestMetrics   observability.IngestMetrics
	)

	if metrics != nil {
		pipelineMetrics = metrics.Pipeline
		ingestMetrics = metrics.Ingest
	}

	// River and the ingestion worker always need Postgres, whichever backend serves searches.
	db, err := bootstrap.NewDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	movies := repository.NewMoviesRepository(db)

	if meterProvider != nil {
		_, err = observability.RegisterStoredMoviesGauge(meterProvider.Meter(observability.TracerName), movies.CountMovies)
		if err != nil {
			return nil, err
		}
	}

	queryEmbeddings, err := bootstrap.NewEmbeddingClient(ctx, cfg, bootstrap.PurposeQuery)
	if err != nil {
		return nil, err
	}

	documentEmbeddings, err := bootstrap.NewEmbeddingClient(ctx, cfg, bootstrap.PurposeDocument)
	if err != nil {
		return nil, err
	}

	completions, err := bootstrap.NewCompletionClient(cfg)
	if err != nil {
		return nil, err
	}

	searcher, err := bootstrap.NewMovieSearcher(cfg, db)
	if err != nil {
		return nil, err
	}

	params := bootstrap.RecommendationParams(cfg)
	params.EmbeddingClient = queryEmbeddings
	params.CompletionClient = completions
	params.Matcher = service.NewMovieMatcher(service.MovieMatcherParams{
		Searcher: searcher,
		Metrics:  pipelineMetrics,
	})
	params.Metrics = pipelineMetrics
	recommendations := service.NewRecommendationService(params)

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewMovieEmbeddingWorker(workers.MovieEmbeddingWorkerParams{
		EmbeddingClient: documentEmbeddings,
		Store:           movies,
		Limiter:         workers.NewLimiter(cfg.EmbeddingRateLimit),
		Metrics:         ingestMetrics,
	}))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			service.EmbeddingsQueueName: {MaxWorkers: cfg.EmbeddingMaxConcurrent},
		},
		Workers:      riverWorkers,
		ErrorHandler: &workers.ErrorHandler{},
		MaxAttempts:  cfg.EmbeddingMaxAttempts,
		Logger:       slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("create River client: %w", err)
	}

	server := newHTTPServer(
		cfg,
		handlers.NewHealthHandler(db),
		handlers.NewRecommendationHandler(recommendations),
		meterProvider, tracerProvider,
	)

	return &App{
		cfg:            cfg,
		db:             db,
		server:         server,
		river:          riverClient,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
	}, nil
}

// newHTTPServer builds the HTTP server and muxes (no auth on /health, API key on /v1/).
// Handler chain: RequestID -> otelhttp(Logging(mux)) so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	health *handlers.HealthHandler,
	recommendations *handlers.RecommendationHandler,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", health.Check)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/recommendations", recommendations.Create)

	mux := http.NewServeMux()
	mux.Handle("/v1/", middleware.Auth(cfg.APIKey)(protected))
	mux.Handle("/", public)

	otelOpts := []otelhttp.Option{
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log.
	handler := otelhttp.NewHandler(middleware.Logging(mux), "popchoice-api", otelOpts...)
	handler = middleware.RequestID(handler)

	// A run makes three sequential model calls; the write timeout must cover all of them.
	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 120 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, then blocks until ctx is cancelled (e.g. signal)
// or a component fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	go func() {
		if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
			select {
			case runErr <- fmt.Errorf("river: %w", err):
			default:
			}
		}
	}()

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port,
			"search_backend", a.cfg.SearchBackend, "embedding_provider", a.cfg.EmbeddingProvider)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
		first = err
	}

	if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
		if first == nil {
			first = err
		} else {
			slog.Error("shutdown meter provider", "error", err)
		}
	}

	return first
}

// Shutdown stops the server, then River (waiting for in-flight jobs), then closes the pool.
// Observability is shut down last; its error is returned only when everything else succeeded.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	defer a.db.Close()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.river.Stop(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if err = a.river.Stop(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
