package models

import "time"

// MovieChunk is one stored row of the movies table: a passage of the movies
// corpus and its embedding.
type MovieChunk struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MovieMatch is one row returned by the match_movies procedure.
type MovieMatch struct {
	ID         int64   `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// MatchResult is the top match of a similarity search, or the absent value
// when the search returned no qualifying record. Check Found before using Content.
type MatchResult struct {
	Content    string
	Similarity float64
	Found      bool
}

// NoMatch is the absent MatchResult.
var NoMatch = MatchResult{}

// NewMatchResult returns a present MatchResult for m.
func NewMatchResult(m MovieMatch) MatchResult {
	return MatchResult{Content: m.Content, Similarity: m.Similarity, Found: true}
}
