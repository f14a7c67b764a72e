package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popchoice/popchoice/internal/config"
	"github.com/popchoice/popchoice/internal/embeddings"
	"github.com/popchoice/popchoice/internal/openai"
	"github.com/popchoice/popchoice/internal/supabase"
)

func baseConfig() *config.Config {
	return &config.Config{
		EmbeddingProvider:    config.EmbeddingProviderOpenAI,
		EmbeddingModel:       config.DefaultEmbeddingModel,
		EmbeddingDimensions:  1536,
		ChatModel:            "gpt-4",
		ChatTemperature:      0.8,
		ChatFrequencyPenalty: 0.7,
		SearchBackend:        config.SearchBackendPostgres,
		MatchThreshold:       0.01,
		MatchCount:           1,
	}
}

func TestNewEmbeddingClient(t *testing.T) {
	ctx := context.Background()

	t.Run("openai requires key", func(t *testing.T) {
		_, err := NewEmbeddingClient(ctx, baseConfig(), PurposeQuery)
		assert.ErrorIs(t, err, ErrMissingOpenAIKey)
	})

	t.Run("openai", func(t *testing.T) {
		cfg := baseConfig()
		cfg.OpenAIAPIKey = "sk-test"
		cfg.EmbeddingDimensions = 512

		client, err := NewEmbeddingClient(ctx, cfg, PurposeQuery)
		require.NoError(t, err)

		oc, ok := client.(*openai.Client)
		require.True(t, ok)
		assert.Equal(t, 512, oc.Dimensions())
	})

	t.Run("google requires key", func(t *testing.T) {
		cfg := baseConfig()
		cfg.EmbeddingProvider = config.EmbeddingProviderGoogle

		_, err := NewEmbeddingClient(ctx, cfg, PurposeDocument)
		assert.ErrorIs(t, err, ErrMissingGoogleKey)
	})

	t.Run("mock", func(t *testing.T) {
		cfg := baseConfig()
		cfg.EmbeddingProvider = config.EmbeddingProviderMock
		cfg.EmbeddingDimensions = 16

		client, err := NewEmbeddingClient(ctx, cfg, PurposeDocument)
		require.NoError(t, err)

		mc, ok := client.(*embeddings.MockClient)
		require.True(t, ok)
		assert.Equal(t, 16, mc.Dimensions())
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := baseConfig()
		cfg.EmbeddingProvider = "cohere"

		_, err := NewEmbeddingClient(ctx, cfg, PurposeQuery)
		assert.ErrorIs(t, err, ErrUnsupportedEmbeddingProvider)
	})
}

func TestNewCompletionClient(t *testing.T) {
	_, err := NewCompletionClient(baseConfig())
	require.ErrorIs(t, err, ErrMissingOpenAIKey)

	cfg := baseConfig()
	cfg.OpenAIAPIKey = "sk-test"

	client, err := NewCompletionClient(cfg)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewMovieSearcher(t *testing.T) {
	t.Run("postgres requires pool", func(t *testing.T) {
		_, err := NewMovieSearcher(baseConfig(), nil)
		assert.ErrorIs(t, err, ErrMissingDatabase)
		assert.True(t, NeedsDatabase(baseConfig()))
	})

	t.Run("supabase", func(t *testing.T) {
		cfg := baseConfig()
		cfg.SearchBackend = config.SearchBackendSupabase
		cfg.SupabaseURL = "https://example.supabase.co"
		cfg.SupabaseAPIKey = "anon"

		searcher, err := NewMovieSearcher(cfg, nil)
		require.NoError(t, err)

		_, ok := searcher.(*supabase.Client)
		assert.True(t, ok)
		assert.False(t, NeedsDatabase(cfg))
	})

	t.Run("supabase without URL", func(t *testing.T) {
		cfg := baseConfig()
		cfg.SearchBackend = config.SearchBackendSupabase

		_, err := NewMovieSearcher(cfg, nil)
		assert.ErrorIs(t, err, supabase.ErrMissingURL)
	})
}

func TestRecommendationParams(t *testing.T) {
	p := RecommendationParams(baseConfig())

	assert.Equal(t, "gpt-4", p.ChatModel)
	assert.InDelta(t, 0.8, p.Temperature, 1e-9)
	assert.InDelta(t, 0.7, p.FrequencyPenalty, 1e-9)
	assert.InDelta(t, 0.01, p.MatchThreshold, 1e-9)
	assert.Equal(t, 1, p.MatchCount)
}
