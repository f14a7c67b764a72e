package service

import (
	"context"
	"sync"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/popchoice/popchoice/internal/models"
)

type mockEmbeddingClient struct {
	createEmbeddingFunc func(ctx context.Context, input string) ([]float32, error)
	inputs              []string
}

func (m *mockEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	m.inputs = append(m.inputs, input)
	if m.createEmbeddingFunc != nil {
		return m.createEmbeddingFunc(ctx, input)
	}

	return []float32{0.1, 0.2, 0.3}, nil
}

type mockCompletionClient struct {
	createChatCompletionFunc func(ctx context.Context, req models.CompletionRequest) (string, error)
	requests                 []models.CompletionRequest
}

func (m *mockCompletionClient) CreateChatCompletion(ctx context.Context, req models.CompletionRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.createChatCompletionFunc != nil {
		return m.createChatCompletionFunc(ctx, req)
	}

	return "Tenet (2020) - A secret agent manipulates the flow of time.", nil
}

type mockMovieSearcher struct {
	matchMoviesFunc func(ctx context.Context, embedding []float32, threshold float64, count int) ([]models.MovieMatch, error)
	calls           int
	lastThreshold   float64
	lastCount       int
}

func (m *mockMovieSearcher) MatchMovies(
	ctx context.Context, embedding []float32, threshold float64, count int,
) ([]models.MovieMatch, error) {
	m.calls++
	m.lastThreshold = threshold
	m.lastCount = count

	if m.matchMoviesFunc != nil {
		return m.matchMoviesFunc(ctx, embedding, threshold, count)
	}

	return []models.MovieMatch{{ID: 1, Content: "Movie X", Similarity: 0.8}}, nil
}

type recordingPresenter struct {
	renderErr error
	rendered  []models.Recommendation
	forms     int
}

func (p *recordingPresenter) RenderRecommendation(_ context.Context, rec models.Recommendation) error {
	if p.renderErr != nil {
		return p.renderErr
	}

	p.rendered = append(p.rendered, rec)

	return nil
}

func (p *recordingPresenter) RenderForm(context.Context) error {
	p.forms++

	return nil
}

type mockJobInserter struct {
	insertFunc func(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
	args       []MovieEmbeddingArgs
	opts       []*river.InsertOpts
}

func (m *mockJobInserter) Insert(
	ctx context.Context, args river.JobArgs, opts *river.InsertOpts,
) (*rivertype.JobInsertResult, error) {
	if a, ok := args.(MovieEmbeddingArgs); ok {
		m.args = append(m.args, a)
	}

	m.opts = append(m.opts, opts)

	if m.insertFunc != nil {
		return m.insertFunc(ctx, args, opts)
	}

	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{}}, nil
}

type stubSplitter struct {
	chunks []string
	err    error
}

func (s stubSplitter) SplitText(string) ([]string, error) {
	return s.chunks, s.err
}

type fakePipelineMetrics struct {
	mu     sync.Mutex
	runs   []string
	stages map[string]bool
	match  []string
}

func (f *fakePipelineMetrics) RecordRun(_ context.Context, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.runs = append(f.runs, outcome)
}

func (f *fakePipelineMetrics) RecordStageDuration(_ context.Context, stage string, _ time.Duration, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stages == nil {
		f.stages = map[string]bool{}
	}

	f.stages[stage] = ok
}

func (f *fakePipelineMetrics) RecordMatchOutcome(_ context.Context, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.match = append(f.match, outcome)
}

type fakeIngestMetrics struct {
	chunks map[string]int64
}

func (f *fakeIngestMetrics) RecordChunks(_ context.Context, result string, count int64) {
	if count <= 0 {
		return
	}

	if f.chunks == nil {
		f.chunks = map[string]int64{}
	}

	f.chunks[result] += count
}

func (f *fakeIngestMetrics) RecordJob(context.Context, string, time.Duration) {}

func (f *fakeIngestMetrics) RecordJobFailure(context.Context, string) {}

func (f *fakeIngestMetrics) RecordStoredChunk(context.Context, int) {}
