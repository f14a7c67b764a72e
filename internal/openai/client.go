// Package openai provides a thin wrapper around the official OpenAI Go SDK for embeddings and chat completions.
package openai

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/popchoice/popchoice/internal/models"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("openai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("openai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("openai: embedding dimension mismatch")
	// ErrNoMessages is returned when CreateChatCompletion is called without messages.
	ErrNoMessages = errors.New("openai: completion request has no messages")
	// ErrNoChoiceInResponse is returned when the completion response contains no choices.
	ErrNoChoiceInResponse = errors.New("openai: no choice in completion response")
	// ErrUnknownRole is returned for a message role other than system or user.
	ErrUnknownRole = errors.New("openai: unknown message role")
)

const (
	defaultDimension = 1536
	defaultModel     = openaisdk.EmbeddingModelTextEmbedding3Small
)

// Client calls the OpenAI embeddings and chat completions APIs via the official SDK.
// The SDK's automatic retries are disabled: every call is attempted once.
type Client struct {
	sdk        openaisdk.Client
	model      string
	dimensions int
	reqOpts    []option.RequestOption
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the requested embedding dimension (must match DB column).
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model name. Empty uses text-embedding-3-small.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithRequestOptions appends SDK request options (e.g. option.WithBaseURL in tests).
func WithRequestOptions(opts ...option.RequestOption) ClientOption {
	return func(c *Client) {
		c.reqOpts = append(c.reqOpts, opts...)
	}
}

// NewClient creates an OpenAI client using the official SDK.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		model:      defaultModel,
		dimensions: defaultDimension,
	}

	for _, opt := range opts {
		opt(client)
	}

	sdkOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, client.reqOpts...)
	client.sdk = openaisdk.NewClient(sdkOpts...)

	return client
}

// Dimensions returns the configured embedding length.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// CreateEmbedding returns the embedding vector for the given text using the configured model.
// The returned slice length equals the configured dimensions.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if input == "" {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(input),
		},
		Model:      openaisdk.EmbeddingModel(c.model),
		Dimensions: param.NewOpt(int64(c.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding
	if len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	out := make([]float32, len(emb))
	for i := range emb {
		out[i] = float32(emb[i])
	}

	return out, nil
}

// CreateChatCompletion sends the conversation and returns the first choice's message content verbatim.
func (c *Client) CreateChatCompletion(ctx context.Context, req models.CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", ErrNoMessages
	}

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.Messages))

	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			messages = append(messages, openaisdk.SystemMessage(m.Content))
		case models.RoleUser:
			messages = append(messages, openaisdk.UserMessage(m.Content))
		default:
			return "", fmt.Errorf("%w: %q", ErrUnknownRole, m.Role)
		}
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:            openaisdk.ChatModel(req.Model),
		Messages:         messages,
		Temperature:      param.NewOpt(req.Temperature),
		FrequencyPenalty: param.NewOpt(req.FrequencyPenalty),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoiceInResponse
	}

	return resp.Choices[0].Message.Content, nil
}
