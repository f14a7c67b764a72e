package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Chunk results reported by the ingest command.
const (
	ChunkEnqueued      = "enqueued"
	ChunkDuplicate     = "duplicate"
	ChunkBlank         = "blank"
	ChunkEnqueueFailed = "enqueue_failed"
)

// Job statuses reported by the movie_embedding worker.
const (
	JobStored      = "stored"
	JobRetry       = "retry"
	JobFailedFinal = "failed_final"
	JobSkipped     = "skipped"
)

// Steps of a movie_embedding job that can fail.
const (
	StepRateLimit = "rate_limit"
	StepEmbed     = "embed"
	StepStore     = "store"
)

// IngestMetrics records how the movies corpus gets into the movies table:
// chunks split and enqueued by the ingest command, then embedded and stored by
// the movie_embedding worker.
type IngestMetrics interface {
	RecordChunks(ctx context.Context, result string, count int64)
	RecordJob(ctx context.Context, status string, duration time.Duration)
	RecordJobFailure(ctx context.Context, step string)
	RecordStoredChunk(ctx context.Context, chars int)
}

type ingestMetrics struct {
	chunks      metric.Int64Counter
	jobs        metric.Int64Counter
	jobDuration metric.Float64Histogram
	failures    metric.Int64Counter
	chunkChars  metric.Int64Histogram
}

// NewIngestMetrics creates IngestMetrics. Returns (nil, nil) when meter is nil.
func NewIngestMetrics(meter metric.Meter) (IngestMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	chunks, err := meter.Int64Counter(MetricNameIngestChunks,
		metric.WithDescription("Movie corpus chunks seen by ingest, by result"))
	if err != nil {
		return nil, fmt.Errorf("create ingest chunks counter: %w", err)
	}

	jobs, err := meter.Int64Counter(MetricNameIngestJobs,
		metric.WithDescription("movie_embedding jobs worked, by status"))
	if err != nil {
		return nil, fmt.Errorf("create ingest jobs counter: %w", err)
	}

	jobDuration, err := meter.Float64Histogram(MetricNameIngestJobDuration,
		metric.WithDescription("movie_embedding job duration, including the rate limit wait"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create ingest job duration histogram: %w", err)
	}

	failures, err := meter.Int64Counter(MetricNameIngestJobFailures,
		metric.WithDescription("movie_embedding job failures, by failing step"))
	if err != nil {
		return nil, fmt.Errorf("create ingest job failures counter: %w", err)
	}

	chunkChars, err := meter.Int64Histogram(MetricNameIngestStoredChunkChars,
		metric.WithDescription("Length of stored movie passages"),
		metric.WithUnit("{char}"),
		metric.WithExplicitBucketBoundaries(50, 100, 200, 300, 400, 600, 1000))
	if err != nil {
		return nil, fmt.Errorf("create stored chunk length histogram: %w", err)
	}

	return &ingestMetrics{
		chunks:      chunks,
		jobs:        jobs,
		jobDuration: jobDuration,
		failures:    failures,
		chunkChars:  chunkChars,
	}, nil
}

func (m *ingestMetrics) RecordChunks(ctx context.Context, result string, count int64) {
	if count <= 0 {
		return
	}

	result = NormalizeReason(result, AllowedChunkResults)
	m.chunks.Add(ctx, count, metric.WithAttributes(attribute.String(AttrResult, result)))
}

func (m *ingestMetrics) RecordJob(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrStatus, NormalizeReason(status, AllowedJobStatuses)))
	m.jobs.Add(ctx, 1, attrs)
	m.jobDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *ingestMetrics) RecordJobFailure(ctx context.Context, step string) {
	step = NormalizeReason(step, AllowedJobSteps)
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStep, step)))
}

func (m *ingestMetrics) RecordStoredChunk(ctx context.Context, chars int) {
	m.chunkChars.Record(ctx, int64(chars))
}

// MovieCounter returns the number of passages in the movies table.
type MovieCounter func(ctx context.Context) (int64, error)

// RegisterStoredMoviesGauge reports count as popchoice_movies_stored on every
// collection. A failing count is skipped for that collection.
func RegisterStoredMoviesGauge(meter metric.Meter, count MovieCounter) (metric.Registration, error) {
	gauge, err := meter.Int64ObservableGauge(MetricNameMoviesStored,
		metric.WithDescription("Passages currently stored in the movies table"))
	if err != nil {
		return nil, fmt.Errorf("create movies stored gauge: %w", err)
	}

	reg, err := meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		n, err := count(ctx)
		if err != nil {
			return nil //nolint:nilerr // a missed observation is not a collection failure
		}

		o.ObserveInt64(gauge, n)

		return nil
	}, gauge)
	if err != nil {
		return nil, fmt.Errorf("register movies stored callback: %w", err)
	}

	return reg, nil
}
