package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/popchoice/popchoice/internal/models"
)

// ErrEmptyEmbedding is returned when a vector argument has no dimensions.
var ErrEmptyEmbedding = errors.New("embedding is empty")

// DB is the subset of *pgxpool.Pool used by the repositories.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MoviesRepository handles data access for the movies table and the match_movies function.
type MoviesRepository struct {
	db DB
}

// NewMoviesRepository creates a new movies repository.
func NewMoviesRepository(db DB) *MoviesRepository {
	return &MoviesRepository{db: db}
}

// MatchMovies calls match_movies and returns the rows whose similarity
// (1 - cosine distance) is above threshold, most similar first, at most count rows.
// An empty slice with a nil error means nothing qualified.
func (r *MoviesRepository) MatchMovies(
	ctx context.Context, queryEmbedding []float32, threshold float64, count int,
) ([]models.MovieMatch, error) {
	if len(queryEmbedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, content, similarity FROM match_movies($1, $2, $3)`,
		pgvector.NewVector(queryEmbedding), threshold, count,
	)
	if err != nil {
		return nil, fmt.Errorf("match movies: %w", err)
	}
	defer rows.Close()

	matches := []models.MovieMatch{}

	for rows.Next() {
		var m models.MovieMatch
		if err := rows.Scan(&m.ID, &m.Content, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan movie match: %w", err)
		}

		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating movie matches: %w", err)
	}

	return matches, nil
}

// InsertMovieChunk stores one passage and its embedding and returns the new row ID.
func (r *MoviesRepository) InsertMovieChunk(ctx context.Context, content string, embedding []float32) (int64, error) {
	if len(embedding) == 0 {
		return 0, ErrEmptyEmbedding
	}

	var id int64

	err := r.db.QueryRow(ctx,
		`INSERT INTO movies (content, embedding) VALUES ($1, $2) RETURNING id`,
		content, pgvector.NewVector(embedding),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert movie chunk: %w", err)
	}

	return id, nil
}

// CountMovies returns the number of stored passages.
func (r *MoviesRepository) CountMovies(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}

	return n, nil
}
