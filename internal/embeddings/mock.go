// Package embeddings provides an offline embedding client for local development and tests.
package embeddings

import (
	"context"
	"crypto/sha256"
	"errors"

	"github.com/popchoice/popchoice/pkg/vector"
)

// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
var ErrEmptyInput = errors.New("embeddings: input text is empty")

// DefaultDimensions matches OpenAI's text-embedding-3-small.
const DefaultDimensions = 1536

// MockClient generates deterministic unit-length embeddings from a hash of the
// input. Equal inputs always map to equal vectors; it never calls a network.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a mock client with DefaultDimensions.
func NewMockClient() *MockClient {
	return &MockClient{dimensions: DefaultDimensions}
}

// NewMockClientWithDimensions creates a mock client with custom dimensions.
func NewMockClientWithDimensions(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions}
}

// Dimensions returns the configured embedding length.
func (c *MockClient) Dimensions() int {
	return c.dimensions
}

// CreateEmbedding returns a deterministic embedding for input.
func (c *MockClient) CreateEmbedding(_ context.Context, input string) ([]float32, error) {
	if input == "" {
		return nil, ErrEmptyInput
	}

	hash := sha256.Sum256([]byte(input))
	embedding := make([]float32, c.dimensions)

	// Cycle through the hash bytes, mapping each to [-1, 1].
	for i := range embedding {
		embedding[i] = (float32(hash[i%len(hash)]) / 127.5) - 1.0
	}

	vector.NormalizeL2(embedding)

	return embedding, nil
}
