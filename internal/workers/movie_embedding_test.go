package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popchoice/popchoice/internal/embeddings"
	"github.com/popchoice/popchoice/internal/observability"
	"github.com/popchoice/popchoice/internal/service"
)

type mockEmbeddingClient struct {
	err   error
	calls int
}

func (m *mockEmbeddingClient) CreateEmbedding(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	return []float32{0.6, 0.8}, nil
}

type mockChunkStore struct {
	err       error
	contents  []string
	vectorLen []int
}

func (m *mockChunkStore) InsertMovieChunk(_ context.Context, content string, embedding []float32) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}

	m.contents = append(m.contents, content)
	m.vectorLen = append(m.vectorLen, len(embedding))

	return int64(len(m.contents)), nil
}

type recordedOutcomes struct {
	outcomes    []string
	errors      []string
	storedChars []int
}

func (r *recordedOutcomes) RecordChunks(context.Context, string, int64) {}
func (r *recordedOutcomes) RecordJob(_ context.Context, status string, _ time.Duration) {
	r.outcomes = append(r.outcomes, status)
}
func (r *recordedOutcomes) RecordJobFailure(_ context.Context, step string) {
	r.errors = append(r.errors, step)
}
func (r *recordedOutcomes) RecordStoredChunk(_ context.Context, chars int) {
	r.storedChars = append(r.storedChars, chars)
}

func newJob(content string, attempt, maxAttempts int) *river.Job[service.MovieEmbeddingArgs] {
	return &river.Job[service.MovieEmbeddingArgs]{
		JobRow: &rivertype.JobRow{Attempt: attempt, MaxAttempts: maxAttempts},
		Args:   service.MovieEmbeddingArgs{Content: content, Source: "movies.txt", Index: 4},
	}
}

func TestMovieEmbeddingWorker_Work(t *testing.T) {
	ctx := context.Background()

	t.Run("stores embedded passage", func(t *testing.T) {
		store := &mockChunkStore{}
		metrics := &recordedOutcomes{}
		worker := NewMovieEmbeddingWorker(MovieEmbeddingWorkerParams{
			EmbeddingClient: embeddings.NewMockClientWithDimensions(8),
			Store:           store,
			Limiter:         NewLimiter(100),
			Metrics:         metrics,
		})

		err := worker.Work(ctx, newJob("  Tenet: A secret agent manipulates time.  ", 1, 3))

		require.NoError(t, err)
		assert.Equal(t, []string{"Tenet: A secret agent manipulates time."}, store.contents)
		assert.Equal(t, []int{8}, store.vectorLen)
		assert.Equal(t, []string{observability.JobStored}, metrics.outcomes)
		assert.Equal(t, []int{len("Tenet: A secret agent manipulates time.")}, metrics.storedChars)
	})

	t.Run("skips blank content", func(t *testing.T) {
		client := &mockEmbeddingClient{}
		store := &mockChunkStore{}
		worker := NewMovieEmbeddingWorker(MovieEmbeddingWorkerParams{EmbeddingClient: client, Store: store})

		err := worker.Work(ctx, newJob("   ", 1, 3))

		require.NoError(t, err)
		assert.Zero(t, client.calls)
		assert.Empty(t, store.contents)
	})

	t.Run("provider error is retried before last attempt", func(t *testing.T) {
		metrics := &recordedOutcomes{}
		worker := NewMovieEmbeddingWorker(MovieEmbeddingWorkerParams{
			EmbeddingClient: &mockEmbeddingClient{err: errors.New("429 too many requests")},
			Store:           &mockChunkStore{},
			Metrics:         metrics,
		})

		err := worker.Work(ctx, newJob("Paddington", 1, 3))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "create embedding")
		assert.Equal(t, []string{observability.JobRetry}, metrics.outcomes)
		assert.Equal(t, []string{observability.StepEmbed}, metrics.errors)
	})

	t.Run("provider error on last attempt is dropped", func(t *testing.T) {
		metrics := &recordedOutcomes{}
		worker := NewMovieEmbeddingWorker(MovieEmbeddingWorkerParams{
			EmbeddingClient: &mockEmbeddingClient{err: errors.New("429 too many requests")},
			Store:           &mockChunkStore{},
			Metrics:         metrics,
		})

		err := worker.Work(ctx, newJob("Paddington", 3, 3))

		require.NoError(t, err)
		assert.Equal(t, []string{observability.JobFailedFinal}, metrics.outcomes)
	})

	t.Run("insert error is retried", func(t *testing.T) {
		metrics := &recordedOutcomes{}
		worker := NewMovieEmbeddingWorker(MovieEmbeddingWorkerParams{
			EmbeddingClient: &mockEmbeddingClient{},
			Store:           &mockChunkStore{err: errors.New("relation movies does not exist")},
			Metrics:         metrics,
		})

		err := worker.Work(ctx, newJob("Paddington", 1, 3))

		require.Error(t, err)
		assert.Equal(t, []string{observability.StepStore}, metrics.errors)
	})

	t.Run("cancelled context fails the rate limit wait", func(t *testing.T) {
		limiter := NewLimiter(0.001)
		require.True(t, limiter.Allow())

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		client := &mockEmbeddingClient{}
		worker := NewMovieEmbeddingWorker(MovieEmbeddingWorkerParams{
			EmbeddingClient: client,
			Store:           &mockChunkStore{},
			Limiter:         limiter,
		})

		err := worker.Work(cancelled, newJob("Paddington", 1, 3))

		require.Error(t, err)
		assert.Zero(t, client.calls)
	})
}

func TestMovieEmbeddingWorker_Timeout(t *testing.T) {
	worker := NewMovieEmbeddingWorker(MovieEmbeddingWorkerParams{})

	assert.Equal(t, movieEmbeddingTimeout, worker.Timeout(newJob("x", 1, 1)))
}
