// Package bootstrap builds the provider clients and search backend selected by configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/popchoice/popchoice/internal/config"
	"github.com/popchoice/popchoice/internal/embeddings"
	"github.com/popchoice/popchoice/internal/googleai"
	"github.com/popchoice/popchoice/internal/openai"
	"github.com/popchoice/popchoice/internal/repository"
	"github.com/popchoice/popchoice/internal/service"
	"github.com/popchoice/popchoice/internal/supabase"
	"github.com/popchoice/popchoice/pkg/database"
)

var (
	// ErrMissingOpenAIKey is returned when OPENAI_API_KEY is needed but unset.
	ErrMissingOpenAIKey = errors.New("OPENAI_API_KEY is required")
	// ErrMissingGoogleKey is returned when GOOGLE_API_KEY is needed but unset.
	ErrMissingGoogleKey = errors.New("GOOGLE_API_KEY is required for EMBEDDING_PROVIDER=google")
	// ErrUnsupportedEmbeddingProvider is returned for an unknown EMBEDDING_PROVIDER.
	ErrUnsupportedEmbeddingProvider = errors.New("unsupported embedding provider")
	// ErrUnsupportedSearchBackend is returned for an unknown SEARCH_BACKEND.
	ErrUnsupportedSearchBackend = errors.New("unsupported search backend")
	// ErrMissingDatabase is returned when the postgres backend is selected without a pool.
	ErrMissingDatabase = errors.New("postgres search backend requires a database pool")
)

// Purpose selects the embedding task: queries (user preferences) or documents (movie passages).
type Purpose int

// Embedding purposes.
const (
	PurposeQuery Purpose = iota
	PurposeDocument
)

// NewEmbeddingClient returns the client for cfg.EmbeddingProvider.
func NewEmbeddingClient(ctx context.Context, cfg *config.Config, purpose Purpose) (service.EmbeddingClient, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, ErrMissingOpenAIKey
		}

		return openai.NewClient(cfg.OpenAIAPIKey,
			openai.WithModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		), nil
	case config.EmbeddingProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return nil, ErrMissingGoogleKey
		}

		taskType := googleai.TaskRetrievalQuery
		if purpose == PurposeDocument {
			taskType = googleai.TaskRetrievalDocument
		}

		model := cfg.EmbeddingModel
		if model == config.DefaultEmbeddingModel {
			// The OpenAI default names no Gemini model; let the client pick its own.
			model = ""
		}

		client, err := googleai.NewClient(ctx, cfg.GoogleAPIKey,
			googleai.WithModel(model),
			googleai.WithTaskType(taskType),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	case config.EmbeddingProviderMock:
		slog.Warn("using mock embeddings; similarity results are not meaningful")

		return embeddings.NewMockClientWithDimensions(cfg.EmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEmbeddingProvider, cfg.EmbeddingProvider)
	}
}

// NewCompletionClient returns the OpenAI chat completion client.
func NewCompletionClient(cfg *config.Config) (service.CompletionClient, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, ErrMissingOpenAIKey
	}

	return openai.NewClient(cfg.OpenAIAPIKey), nil
}

// NeedsDatabase reports whether the selected search backend reads from DATABASE_URL.
func NeedsDatabase(cfg *config.Config) bool {
	return cfg.SearchBackend == config.SearchBackendPostgres
}

// NewMovieSearcher returns the search backend for cfg.SearchBackend. db is used
// only by the postgres backend and may be nil otherwise.
func NewMovieSearcher(cfg *config.Config, db *pgxpool.Pool) (service.MovieSearcher, error) {
	switch cfg.SearchBackend {
	case config.SearchBackendPostgres:
		if db == nil {
			return nil, ErrMissingDatabase
		}

		return repository.NewMoviesRepository(db), nil
	case config.SearchBackendSupabase:
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create supabase client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSearchBackend, cfg.SearchBackend)
	}
}

// NewDatabase opens the pool with pgvector types registered. The vector
// extension must already exist (see repository.Migrate).
func NewDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithVectorTypes())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return db, nil
}

// RecommendationParams returns the RecommendationService parameters taken from cfg.
func RecommendationParams(cfg *config.Config) service.RecommendationServiceParams {
	return service.RecommendationServiceParams{
		ChatModel:        cfg.ChatModel,
		Temperature:      cfg.ChatTemperature,
		FrequencyPenalty: cfg.ChatFrequencyPenalty,
		MatchThreshold:   cfg.MatchThreshold,
		MatchCount:       cfg.MatchCount,
	}
}
