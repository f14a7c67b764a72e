// Package workers provides River job workers for ingesting the movies corpus.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/popchoice/popchoice/internal/observability"
	"github.com/popchoice/popchoice/internal/service"
)

const movieEmbeddingTimeout = 30 * time.Second

// MovieEmbeddingWorker embeds one passage and stores it in the movies table.
type MovieEmbeddingWorker struct {
	river.WorkerDefaults[service.MovieEmbeddingArgs]

	embeddings service.EmbeddingClient
	store      service.MovieChunkStore
	limiter    *rate.Limiter
	metrics    observability.IngestMetrics
}

// MovieEmbeddingWorkerParams configures MovieEmbeddingWorker. Limiter and Metrics may be nil.
type MovieEmbeddingWorkerParams struct {
	EmbeddingClient service.EmbeddingClient
	Store           service.MovieChunkStore
	Limiter         *rate.Limiter
	Metrics         observability.IngestMetrics
}

// NewMovieEmbeddingWorker creates a MovieEmbeddingWorker.
func NewMovieEmbeddingWorker(p MovieEmbeddingWorkerParams) *MovieEmbeddingWorker {
	return &MovieEmbeddingWorker{
		embeddings: p.EmbeddingClient,
		store:      p.Store,
		limiter:    p.Limiter,
		metrics:    p.Metrics,
	}
}

// NewLimiter returns a limiter allowing perSecond embedding calls with a burst of one.
func NewLimiter(perSecond float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Timeout limits how long a single embedding job can run.
func (w *MovieEmbeddingWorker) Timeout(*river.Job[service.MovieEmbeddingArgs]) time.Duration {
	return movieEmbeddingTimeout
}

// Work embeds the passage and inserts it. Provider failures are retried by River
// until the last attempt, where the job is logged and dropped.
func (w *MovieEmbeddingWorker) Work(ctx context.Context, job *river.Job[service.MovieEmbeddingArgs]) error {
	args := job.Args
	start := time.Now()

	content := strings.TrimSpace(args.Content)
	if content == "" {
		w.recordJob(ctx, start, observability.JobSkipped)
		slog.InfoContext(ctx, "movie embedding: skipped (empty content)", "source", args.Source, "index", args.Index)

		return nil
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			w.recordFailure(ctx, observability.StepRateLimit)

			return w.retryOrDrop(ctx, job, start, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	embedding, err := w.embeddings.CreateEmbedding(ctx, content)
	if err != nil {
		w.recordFailure(ctx, observability.StepEmbed)

		return w.retryOrDrop(ctx, job, start, fmt.Errorf("create embedding: %w", err))
	}

	id, err := w.store.InsertMovieChunk(ctx, content, embedding)
	if err != nil {
		w.recordFailure(ctx, observability.StepStore)

		return w.retryOrDrop(ctx, job, start, fmt.Errorf("insert movie chunk: %w", err))
	}

	w.recordJob(ctx, start, observability.JobStored)

	if w.metrics != nil {
		w.metrics.RecordStoredChunk(ctx, len(content))
	}

	slog.InfoContext(ctx, "movie embedding: stored",
		"movie_id", id, "source", args.Source, "index", args.Index, "dimensions", len(embedding))

	return nil
}

func (w *MovieEmbeddingWorker) retryOrDrop(
	ctx context.Context, job *river.Job[service.MovieEmbeddingArgs], start time.Time, err error,
) error {
	if job.Attempt >= job.MaxAttempts {
		w.recordJob(ctx, start, observability.JobFailedFinal)
		slog.ErrorContext(ctx, "movie embedding: failed (final attempt)",
			"source", job.Args.Source,
			"index", job.Args.Index,
			"attempt", job.Attempt,
			"error", err,
		)

		return nil
	}

	w.recordJob(ctx, start, observability.JobRetry)
	slog.WarnContext(ctx, "movie embedding: failed, will retry",
		"source", job.Args.Source,
		"index", job.Args.Index,
		"attempt", job.Attempt,
		"error", err,
	)

	return err
}

func (w *MovieEmbeddingWorker) recordJob(ctx context.Context, start time.Time, status string) {
	if w.metrics != nil {
		w.metrics.RecordJob(ctx, status, time.Since(start))
	}
}

func (w *MovieEmbeddingWorker) recordFailure(ctx context.Context, step string) {
	if w.metrics != nil {
		w.metrics.RecordJobFailure(ctx, step)
	}
}
