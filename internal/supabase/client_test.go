package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...ClientOption) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL+"/", "anon-key", opts...)
	require.NoError(t, err)

	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("  ", "key")
	require.ErrorIs(t, err, ErrMissingURL)

	_, err = NewClient("https://example.supabase.co", "")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func transportClient(t *testing.T, c *Client) *http.Client {
	t.Helper()

	rt, ok := c.httpClient.Transport.(*retryablehttp.RoundTripper)
	require.True(t, ok)

	return rt.Client.HTTPClient
}

func TestNewClient_Timeout(t *testing.T) {
	t.Run("no client timeout by default", func(t *testing.T) {
		client, err := NewClient("https://example.supabase.co", "key")
		require.NoError(t, err)

		hc := transportClient(t, client)
		assert.Zero(t, hc.Timeout)
		assert.Equal(t, 0, client.httpClient.Transport.(*retryablehttp.RoundTripper).Client.RetryMax)
	})

	t.Run("timeout is opt-in", func(t *testing.T) {
		client, err := NewClient("https://example.supabase.co", "key", WithTimeout(5*time.Second))
		require.NoError(t, err)

		assert.Equal(t, 5*time.Second, transportClient(t, client).Timeout)
	})

	t.Run("caller's http client is not modified", func(t *testing.T) {
		own := &http.Client{Timeout: 2 * time.Minute}

		client, err := NewClient("https://example.supabase.co", "key",
			WithHTTPClient(own), WithTimeout(5*time.Second))
		require.NoError(t, err)

		assert.Equal(t, 2*time.Minute, own.Timeout)
		assert.NotSame(t, own, transportClient(t, client))
		assert.Equal(t, 5*time.Second, transportClient(t, client).Timeout)
	})

	t.Run("caller's timeout is kept without WithTimeout", func(t *testing.T) {
		own := &http.Client{Timeout: 2 * time.Minute}

		client, err := NewClient("https://example.supabase.co", "key", WithHTTPClient(own))
		require.NoError(t, err)

		assert.Equal(t, 2*time.Minute, transportClient(t, client).Timeout)
	})
}

func TestClient_MatchMovies(t *testing.T) {
	var got matchMoviesRequest

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/v1/rpc/match_movies", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 4, "content": "Tenet: A secret agent manipulates time.", "similarity": 0.83},
			{"id": 9, "content": "Inception: Thieves enter dreams.", "similarity": 0.71}
		]`))
	})

	client := newTestClient(t, mux)

	matches, err := client.MatchMovies(context.Background(), []float32{0.1, 0.2, 0.3}, 0.01, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, int64(4), matches[0].ID)
	assert.Equal(t, "Tenet: A secret agent manipulates time.", matches[0].Content)
	assert.InDelta(t, 0.83, matches[0].Similarity, 1e-9)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.QueryEmbedding)
	assert.InDelta(t, 0.01, got.MatchThreshold, 1e-9)
	assert.Equal(t, 2, got.MatchCount)
}

func TestClient_MatchMovies_EmptyResult(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))

	matches, err := client.MatchMovies(context.Background(), []float32{1}, 0.01, 1)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestClient_MatchMovies_Errors(t *testing.T) {
	t.Run("empty embedding does not call the API", func(t *testing.T) {
		var calls atomic.Int32

		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
		}))

		_, err := client.MatchMovies(context.Background(), nil, 0.01, 1)
		require.ErrorIs(t, err, ErrEmptyEmbedding)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("error status is attempted once by default", func(t *testing.T) {
		var calls atomic.Int32

		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, `{"message":"function match_movies does not exist"}`, http.StatusNotFound)
		}))

		_, err := client.MatchMovies(context.Background(), []float32{1}, 0.01, 1)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
		assert.Contains(t, statusErr.Body, "match_movies does not exist")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server error is surfaced without retrying", func(t *testing.T) {
		var calls atomic.Int32

		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		_, err := client.MatchMovies(context.Background(), []float32{1}, 0.01, 1)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("request context bounds the call", func(t *testing.T) {
		release := make(chan struct{})

		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		// Registered after the server so it runs before srv.Close waits on the handler.
		t.Cleanup(func() { close(release) })

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := client.MatchMovies(ctx, []float32{1}, 0.01, 1)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("malformed body", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"not": "an array"}`))
		}))

		_, err := client.MatchMovies(context.Background(), []float32{1}, 0.01, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode match_movies response")
	})
}
