package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/riverqueue/river"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/popchoice/popchoice/internal/apperrors"
	"github.com/popchoice/popchoice/internal/observability"
)

// Chunking of the movies corpus.
const (
	DefaultChunkSize    = 400
	DefaultChunkOverlap = 100
)

// IngestService splits a movies corpus into overlapping passages and enqueues
// one movie_embedding job per passage.
type IngestService struct {
	inserter    JobInserter
	splitter    textsplitter.TextSplitter
	queueName   string
	maxAttempts int
	metrics     observability.IngestMetrics
	logger      *slog.Logger
}

// IngestServiceParams configures IngestService. A nil Splitter uses a recursive
// character splitter with DefaultChunkSize and DefaultChunkOverlap. Metrics and
// Logger may be nil.
type IngestServiceParams struct {
	Inserter    JobInserter
	Splitter    textsplitter.TextSplitter
	QueueName   string
	MaxAttempts int
	Metrics     observability.IngestMetrics
	Logger      *slog.Logger
}

// NewIngestService creates an IngestService.
func NewIngestService(p IngestServiceParams) *IngestService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	splitter := p.Splitter
	if splitter == nil {
		splitter = NewMovieSplitter()
	}

	queueName := p.QueueName
	if queueName == "" {
		queueName = EmbeddingsQueueName
	}

	return &IngestService{
		inserter:    p.Inserter,
		splitter:    splitter,
		queueName:   queueName,
		maxAttempts: p.MaxAttempts,
		metrics:     p.Metrics,
		logger:      logger,
	}
}

// NewMovieSplitter returns the splitter used for the movies corpus.
func NewMovieSplitter() textsplitter.TextSplitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(DefaultChunkSize),
		textsplitter.WithChunkOverlap(DefaultChunkOverlap),
	)
}

// Ingest splits text and enqueues a job per non-blank chunk. source labels the
// jobs (usually the file name). It returns the number of jobs inserted; chunks
// already pending are skipped by River's uniqueness and not counted.
func (s *IngestService) Ingest(ctx context.Context, source, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, apperrors.NewValidationError("text", "movies text is empty")
	}

	chunks, err := s.splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("split movies text: %w", err)
	}

	opts := &river.InsertOpts{
		Queue:       s.queueName,
		MaxAttempts: s.maxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}

	var inserted, duplicates, blank int

	defer func() {
		s.recordChunks(ctx, observability.ChunkEnqueued, inserted)
		s.recordChunks(ctx, observability.ChunkDuplicate, duplicates)
		s.recordChunks(ctx, observability.ChunkBlank, blank)
	}()

	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			blank++

			continue
		}

		res, err := s.inserter.Insert(ctx, MovieEmbeddingArgs{Content: chunk, Source: source, Index: i}, opts)
		if err != nil {
			s.recordChunks(ctx, observability.ChunkEnqueueFailed, 1)

			s.logger.ErrorContext(ctx, "ingest: enqueue failed", "source", source, "index", i, "error", err)

			return inserted, fmt.Errorf("enqueue chunk %d: %w", i, err)
		}

		if res != nil && res.UniqueSkippedAsDuplicate {
			s.logger.DebugContext(ctx, "ingest: chunk already pending", "source", source, "index", i)

			duplicates++

			continue
		}

		inserted++
	}

	s.logger.InfoContext(ctx, "ingest: jobs enqueued",
		"source", source, "chunks", len(chunks), "enqueued", inserted, "duplicates", duplicates)

	return inserted, nil
}

func (s *IngestService) recordChunks(ctx context.Context, result string, count int) {
	if s.metrics != nil {
		s.metrics.RecordChunks(ctx, result, int64(count))
	}
}
