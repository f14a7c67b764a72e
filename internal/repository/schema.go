package repository

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidDimensions is returned when the schema is requested for a non-positive vector size.
var ErrInvalidDimensions = errors.New("vector dimensions must be positive")

// SchemaStatements returns the DDL for the movies table and the match_movies
// function, sized for embeddings of the given dimensions. Statements are idempotent.
func SchemaStatements(dimensions int) ([]string, error) {
	if dimensions <= 0 {
		return nil, ErrInvalidDimensions
	}

	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS movies (
			id bigserial PRIMARY KEY,
			content text NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, dimensions),
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION match_movies(
			query_embedding vector(%d),
			match_threshold float,
			match_count int
		)
		RETURNS TABLE (id bigint, content text, similarity float)
		LANGUAGE sql STABLE
		AS $$
			SELECT movies.id, movies.content, 1 - (movies.embedding <=> query_embedding) AS similarity
			FROM movies
			WHERE 1 - (movies.embedding <=> query_embedding) > match_threshold
			ORDER BY movies.embedding <=> query_embedding ASC
			LIMIT match_count;
		$$`, dimensions),
	}, nil
}

// Migrate applies SchemaStatements in order.
func Migrate(ctx context.Context, db DB, dimensions int) error {
	stmts, err := SchemaStatements(dimensions)
	if err != nil {
		return err
	}

	for i, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}

	return nil
}
