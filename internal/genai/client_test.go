package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	return string(b)
}

func newClient(endpoint string) *Client {
	return &Client{
		Endpoint: endpoint,
		Model:    "gemini-2.5-flash",
		APIKey:   "test-key",
		Retry:    RetryConfig{MaxAttempts: 1},
	}
}

func TestGenerate_ReturnsCandidateText(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(candidateBody("# Arrow Functions\n\nBody.")))
	}))
	defer srv.Close()

	text, err := newClient(srv.URL).Generate(context.Background(), "write a tutorial")
	require.NoError(t, err)
	assert.Equal(t, "# Arrow Functions\n\nBody.", text)
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotReq.Contents, 1)
	require.Len(t, gotReq.Contents[0].Parts, 1)
	assert.Equal(t, "write a tutorial", gotReq.Contents[0].Parts[0].Text)
}

func TestGenerate_JoinsMultipleParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"one "},{"text":"two"}]}}]}`))
	}))
	defer srv.Close()

	text, err := newClient(srv.URL).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "one two", text)
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(candidateBody("ok")))
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	c.Retry = RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}

	text, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_ExhaustedRetriesSurfaceLastStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "still overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	c.Retry = RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}

	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Contains(t, err.Error(), "still overloaded")
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	c.Retry = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}

	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerate_InputValidation(t *testing.T) {
	c := newClient("http://unused.invalid")

	_, err := c.Generate(context.Background(), "   ")
	assert.ErrorContains(t, err, "prompt")

	c.APIKey = ""
	_, err = c.Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "API key")
}

func TestGenerate_RejectsEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "no candidates")
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}.withDefaults()

	for attempt, want := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 300 * time.Millisecond, // capped
	} {
		d := backoff(attempt, cfg)
		lo := time.Duration(float64(want) * (1 - jitterFraction))
		hi := time.Duration(float64(want) * (1 + jitterFraction))
		assert.GreaterOrEqual(t, d, lo, "attempt %d", attempt)
		assert.LessOrEqual(t, d, hi, "attempt %d", attempt)
	}
}
