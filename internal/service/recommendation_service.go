package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/popchoice/popchoice/internal/apperrors"
	"github.com/popchoice/popchoice/internal/models"
	"github.com/popchoice/popchoice/internal/observability"
	"github.com/popchoice/popchoice/internal/prompt"
)

// Chat completion defaults.
const (
	DefaultChatModel        = "gpt-4"
	DefaultTemperature      = 0.8
	DefaultFrequencyPenalty = 0.7
)

// RecommendationService runs the recommendation pipeline: embedding, similarity
// search, chat completion, parse, render. Stages run strictly in order and a
// run shares no state with other runs.
type RecommendationService struct {
	embeddings       EmbeddingClient
	completions      CompletionClient
	matcher          *MovieMatcher
	chatModel        string
	temperature      float64
	frequencyPenalty float64
	matchThreshold   float64
	matchCount       int
	metrics          observability.PipelineMetrics
	logger           *slog.Logger
}

// RecommendationServiceParams configures RecommendationService.
// An empty ChatModel uses DefaultChatModel and a non-positive MatchCount uses
// DefaultMatchCount. Temperature, FrequencyPenalty and MatchThreshold are used
// as given. Metrics and Logger may be nil.
type RecommendationServiceParams struct {
	EmbeddingClient  EmbeddingClient
	CompletionClient CompletionClient
	Matcher          *MovieMatcher
	ChatModel        string
	Temperature      float64
	FrequencyPenalty float64
	MatchThreshold   float64
	MatchCount       int
	Metrics          observability.PipelineMetrics
	Logger           *slog.Logger
}

// NewRecommendationService creates a RecommendationService.
func NewRecommendationService(p RecommendationServiceParams) *RecommendationService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chatModel := p.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	matchCount := p.MatchCount
	if matchCount <= 0 {
		matchCount = DefaultMatchCount
	}

	return &RecommendationService{
		embeddings:       p.EmbeddingClient,
		completions:      p.CompletionClient,
		matcher:          p.Matcher,
		chatModel:        chatModel,
		temperature:      p.Temperature,
		frequencyPenalty: p.FrequencyPenalty,
		matchThreshold:   p.MatchThreshold,
		matchCount:       matchCount,
		metrics:          p.Metrics,
		logger:           logger,
	}
}

// CreateEmbedding embeds the joined preference answers. Unanswered questions
// still contribute their separators, so an empty form embeds "  ".
func (s *RecommendationService) CreateEmbedding(ctx context.Context, prefs models.UserPreferences) ([]float32, error) {
	embedding, err := s.embeddings.CreateEmbedding(ctx, prompt.Query(prefs))
	if err != nil {
		s.logger.ErrorContext(ctx, "recommendation: create embedding failed", "error", err)

		return nil, apperrors.NewUpstreamError(apperrors.StageEmbedding, fmt.Errorf("create embedding: %w", err))
	}

	return embedding, nil
}

// GetChatCompletion asks the chat model for a recommendation grounded in match
// and returns the first choice's text verbatim.
func (s *RecommendationService) GetChatCompletion(
	ctx context.Context, match models.MatchResult, prefs models.UserPreferences,
) (string, error) {
	text, err := s.completions.CreateChatCompletion(ctx, models.CompletionRequest{
		Model:            s.chatModel,
		Messages:         prompt.Messages(match, prefs),
		Temperature:      s.temperature,
		FrequencyPenalty: s.frequencyPenalty,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "recommendation: chat completion failed", "error", err, "model", s.chatModel)

		return "", apperrors.NewUpstreamError(apperrors.StageCompletion, fmt.Errorf("chat completion: %w", err))
	}

	return text, nil
}

// Recommend runs embedding, search and completion, and parses the completion
// into a Recommendation. An absent match does not stop the run: the model
// receives an empty context and is told to answer with prompt.Refusal.
func (s *RecommendationService) Recommend(
	ctx context.Context, prefs models.UserPreferences,
) (models.Recommendation, error) {
	ctx, span := observability.StartSpan(ctx, "recommendation.recommend")

	rec, err := s.recommend(ctx, prefs)
	s.recordRun(ctx, err)
	observability.EndSpan(span, err)

	return rec, err
}

// Run executes one full pipeline run and renders the result on presenter.
// Nothing is rendered when a stage fails; the stage error is returned.
func (s *RecommendationService) Run(
	ctx context.Context, prefs models.UserPreferences, presenter Presenter,
) error {
	ctx, span := observability.StartSpan(ctx, "recommendation.run")

	err := s.run(ctx, prefs, presenter)
	s.recordRun(ctx, err)
	observability.EndSpan(span, err)

	return err
}

func (s *RecommendationService) run(ctx context.Context, prefs models.UserPreferences, presenter Presenter) error {
	rec, err := s.recommend(ctx, prefs)
	if err != nil {
		return err
	}

	err = s.stage(ctx, observability.StageRender, func(ctx context.Context) error {
		return presenter.RenderRecommendation(ctx, rec)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "recommendation: render failed", "error", err)

		return &renderError{err: err}
	}

	return nil
}

func (s *RecommendationService) recommend(
	ctx context.Context, prefs models.UserPreferences,
) (models.Recommendation, error) {
	var (
		embedding []float32
		match     models.MatchResult
		text      string
	)

	err := s.stage(ctx, observability.StageEmbedding, func(ctx context.Context) error {
		var err error
		embedding, err = s.CreateEmbedding(ctx, prefs)

		return err
	})
	if err != nil {
		return models.Recommendation{}, err
	}

	err = s.stage(ctx, observability.StageSearch, func(ctx context.Context) error {
		var err error
		match, err = s.matcher.MatchMovies(ctx, embedding, s.matchThreshold, s.matchCount)

		return err
	})
	if err != nil {
		return models.Recommendation{}, err
	}

	err = s.stage(ctx, observability.StageCompletion, func(ctx context.Context) error {
		var err error
		text, err = s.GetChatCompletion(ctx, match, prefs)

		return err
	})
	if err != nil {
		return models.Recommendation{}, err
	}

	rec := models.ParseRecommendation(text)
	if rec.Description == "" {
		s.logger.WarnContext(ctx, "recommendation: completion has no title delimiter", "text", text)
	}

	s.logger.InfoContext(ctx, "recommendation: ready",
		"title", rec.Title, "match_found", match.Found, "similarity", match.Similarity)

	return rec, nil
}

// stage runs fn inside a span and records its duration.
func (s *RecommendationService) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "recommendation."+name)
	span.SetAttributes(attribute.String(observability.AttrStage, name))

	start := time.Now()
	err := fn(ctx)

	if s.metrics != nil {
		s.metrics.RecordStageDuration(ctx, name, time.Since(start), err == nil)
	}

	observability.EndSpan(span, err)

	return err
}

func (s *RecommendationService) recordRun(ctx context.Context, err error) {
	if s.metrics != nil {
		s.metrics.RecordRun(ctx, runOutcome(err))
	}
}

type renderError struct {
	err error
}

func (e *renderError) Error() string { return "render: " + e.err.Error() }

func (e *renderError) Unwrap() error { return e.err }

func runOutcome(err error) string {
	var renderErr *renderError

	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrValidation):
		return "invalid_input"
	case errors.Is(err, ErrEmbeddingFailed):
		return "embedding_failed"
	case errors.Is(err, ErrSearchFailed):
		return "search_failed"
	case errors.Is(err, ErrCompletionFailed):
		return "completion_failed"
	case errors.As(err, &renderErr):
		return "render_failed"
	default:
		return "other"
	}
}
