package service

import (
	"context"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	movieEmbeddingKind = "movie_embedding"
	// EmbeddingsQueueName is the River queue used for movie embedding jobs.
	EmbeddingsQueueName = "embeddings"
)

// JobInserter inserts River jobs (the River client in production).
type JobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// MovieEmbeddingArgs is the job payload for embedding and storing one passage
// of the movies corpus. Uniqueness is by Content, so ingesting the same file
// twice while jobs are pending does not duplicate rows.
type MovieEmbeddingArgs struct {
	Content string `json:"content" river:"unique"`
	Source  string `json:"source,omitempty"`
	Index   int    `json:"index"`
}

// Kind returns the River job kind.
func (MovieEmbeddingArgs) Kind() string { return movieEmbeddingKind }

var _ river.JobArgs = MovieEmbeddingArgs{}
