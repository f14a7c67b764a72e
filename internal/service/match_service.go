package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/popchoice/popchoice/internal/apperrors"
	"github.com/popchoice/popchoice/internal/models"
	"github.com/popchoice/popchoice/internal/observability"
)

// Similarity search defaults.
const (
	DefaultMatchThreshold = 0.01
	DefaultMatchCount     = 1
)

// MovieMatcher turns the rows of a MovieSearcher into a single MatchResult.
type MovieMatcher struct {
	searcher MovieSearcher
	metrics  observability.PipelineMetrics
	logger   *slog.Logger
}

// MovieMatcherParams configures MovieMatcher. Metrics and Logger may be nil.
type MovieMatcherParams struct {
	Searcher MovieSearcher
	Metrics  observability.PipelineMetrics
	Logger   *slog.Logger
}

// NewMovieMatcher creates a MovieMatcher.
func NewMovieMatcher(p MovieMatcherParams) *MovieMatcher {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MovieMatcher{
		searcher: p.Searcher,
		metrics:  p.Metrics,
		logger:   logger,
	}
}

// MatchMovies returns the most similar stored passage for embedding.
//
// The three outcomes are distinct:
//   - search error: the error is logged and returned with models.NoMatch; it matches ErrSearchFailed.
//   - no qualifying rows: models.NoMatch and a nil error.
//   - rows: the first row only (the backend orders by similarity descending).
//
// A non-positive count is replaced by DefaultMatchCount.
func (m *MovieMatcher) MatchMovies(
	ctx context.Context, embedding []float32, threshold float64, count int,
) (models.MatchResult, error) {
	if count <= 0 {
		count = DefaultMatchCount
	}

	rows, err := m.searcher.MatchMovies(ctx, embedding, threshold, count)
	if err != nil {
		m.recordOutcome(ctx, "error")
		m.logger.ErrorContext(ctx, "match movies: search failed",
			"error", err, "threshold", threshold, "count", count)

		return models.NoMatch, apperrors.NewUpstreamError(apperrors.StageSearch, fmt.Errorf("match movies: %w", err))
	}

	if len(rows) == 0 {
		m.recordOutcome(ctx, "absent")
		m.logger.InfoContext(ctx, "match movies: no match above threshold", "threshold", threshold)

		return models.NoMatch, nil
	}

	m.recordOutcome(ctx, "found")
	m.logger.DebugContext(ctx, "match movies: found",
		"movie_id", rows[0].ID, "similarity", rows[0].Similarity, "rows", len(rows))

	return models.NewMatchResult(rows[0]), nil
}

func (m *MovieMatcher) recordOutcome(ctx context.Context, outcome string) {
	if m.metrics != nil {
		m.metrics.RecordMatchOutcome(ctx, outcome)
	}
}
