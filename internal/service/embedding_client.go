package service

import (
	"context"

	"github.com/popchoice/popchoice/internal/models"
)

// EmbeddingClient generates embedding vectors for text.
// Implemented by provider-specific clients (OpenAI, Google Gemini, mock).
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// CompletionClient returns the text of the first choice of a chat completion.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req models.CompletionRequest) (string, error)
}

// MovieSearcher runs the match_movies similarity search against a backend
// (Postgres with pgvector, or Supabase RPC). Rows are ordered most similar first.
type MovieSearcher interface {
	MatchMovies(ctx context.Context, queryEmbedding []float32, threshold float64, count int) ([]models.MovieMatch, error)
}

// MovieChunkStore persists one embedded passage of the movies corpus.
type MovieChunkStore interface {
	InsertMovieChunk(ctx context.Context, content string, embedding []float32) (int64, error)
}
