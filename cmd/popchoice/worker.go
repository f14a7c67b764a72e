package main

import (
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/popchoice/popchoice/internal/bootstrap"
	"github.com/popchoice/popchoice/internal/config"
	"github.com/popchoice/popchoice/internal/observability"
	"github.com/popchoice/popchoice/internal/repository"
	"github.com/popchoice/popchoice/internal/service"
	"github.com/popchoice/popchoice/internal/workers"
)

func newWorkerCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Embed and store enqueued movie chunks until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := bootstrap.NewDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			movies := repository.NewMoviesRepository(db)

			meterProvider, err := observability.NewMeterProvider(cfg, "worker")
			if err != nil {
				return fmt.Errorf("create meter provider: %w", err)
			}

			var ingestMetrics observability.IngestMetrics

			if meterProvider != nil {
				otel.SetMeterProvider(meterProvider)

				defer func() {
					shutdownCtx, cancel := stopContext()
					defer cancel()

					if err := observability.ShutdownMeterProvider(shutdownCtx, meterProvider); err != nil {
						slog.Error("shutdown meter provider", "error", err)
					}
				}()

				meter := meterProvider.Meter(observability.TracerName)

				ingestMetrics, err = observability.NewIngestMetrics(meter)
				if err != nil {
					return fmt.Errorf("create ingest metrics: %w", err)
				}

				if _, err := observability.RegisterStoredMoviesGauge(meter, movies.CountMovies); err != nil {
					return err
				}
			}

			embeddings, err := bootstrap.NewEmbeddingClient(ctx, cfg, bootstrap.PurposeDocument)
			if err != nil {
				return err
			}

			riverWorkers := river.NewWorkers()
			river.AddWorker(riverWorkers, workers.NewMovieEmbeddingWorker(workers.MovieEmbeddingWorkerParams{
				EmbeddingClient: embeddings,
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
				return fmt.Errorf("create River client: %w", err)
			}

			if err := riverClient.Start(ctx); err != nil {
				return fmt.Errorf("start River client: %w", err)
			}

			slog.Info("Embedding worker started",
				"queue", service.EmbeddingsQueueName, "max_workers", cfg.EmbeddingMaxConcurrent)

			<-ctx.Done()

			// ctx is already cancelled; stop with a fresh context so in-flight jobs can finish.
			stopCtx, cancel := stopContext()
			defer cancel()

			if err := riverClient.Stop(stopCtx); err != nil {
				return fmt.Errorf("stop River client: %w", err)
			}

			slog.Info("Embedding worker stopped")

			return nil
		},
	}
}
