// Package supabase calls the match_movies function of a hosted Supabase project
// through its PostgREST RPC endpoint.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/popchoice/popchoice/internal/models"
)

var (
	// ErrMissingURL is returned by NewClient when the project URL is empty.
	ErrMissingURL = errors.New("supabase: project URL is required")
	// ErrMissingAPIKey is returned by NewClient when the API key is empty.
	ErrMissingAPIKey = errors.New("supabase: API key is required")
	// ErrEmptyEmbedding is returned when MatchMovies is called without a query vector.
	ErrEmptyEmbedding = errors.New("supabase: embedding is empty")
)

const (
	matchMoviesPath   = "/rest/v1/rpc/match_movies"
	maxErrorBodyBytes = 4096
)

// StatusError is returned when the RPC endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("supabase: rpc returned status %d", e.StatusCode)
	}

	return fmt.Sprintf("supabase: rpc returned status %d: %s", e.StatusCode, e.Body)
}

// Client calls Supabase RPC functions with the project's API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	timeout    time.Duration
	httpClient *http.Client
}

// WithTimeout sets an HTTP client timeout. Without it only the request context bounds a call.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying transport client (e.g. an otelhttp-instrumented one).
// The client is copied, never modified.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// NewClient creates a client for the project at baseURL (e.g. https://xyz.supabase.co).
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingURL
	}

	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	// Failed RPCs are never retried.
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if o.httpClient != nil {
		hc := *o.httpClient
		rc.HTTPClient = &hc
	}

	if o.timeout > 0 {
		rc.HTTPClient.Timeout = o.timeout
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: rc.StandardClient(),
	}, nil
}

type matchMoviesRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"` //nolint:tagliatelle // PostgREST argument names
	MatchThreshold float64   `json:"match_threshold"` //nolint:tagliatelle // PostgREST argument names
	MatchCount     int       `json:"match_count"`     //nolint:tagliatelle // PostgREST argument names
}

// MatchMovies invokes match_movies and returns its rows in the order the function produced them.
func (c *Client) MatchMovies(
	ctx context.Context, queryEmbedding []float32, threshold float64, count int,
) ([]models.MovieMatch, error) {
	if len(queryEmbedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	body, err := json.Marshal(matchMoviesRequest{
		QueryEmbedding: queryEmbedding,
		MatchThreshold: threshold,
		MatchCount:     count,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal match_movies request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+matchMoviesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create match_movies request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("match_movies rpc: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}

	var matches []models.MovieMatch
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("decode match_movies response: %w", err)
	}

	if matches == nil {
		matches = []models.MovieMatch{}
	}

	return matches, nil
}
