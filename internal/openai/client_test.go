package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/420btc/KinemaTV/internal/analysis"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "sk-test-123456789", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{APIKey: "   "})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{APIKey: "sk-x"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultVisionModel, c.VisionModel())
	assert.Equal(t, defaultTimeout, c.http.Timeout)
}

func TestComplete_SendsSystemAndUserMessages(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test-123456789", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"biography\":\"x\"}"}}]}`))
	})

	out, err := c.Complete(context.Background(), analysis.Completion{
		System: "sys", User: "usr", MaxTokens: 2000, Temperature: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"biography":"x"}`, out)

	assert.Equal(t, DefaultModel, got["model"])
	assert.EqualValues(t, 2000, got["max_tokens"])
	assert.InDelta(t, 0.3, got["temperature"], 1e-9)
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": "sys"}, msgs[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "usr"}, msgs[1])
}

func TestChat_MultipartContent(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Un póster precioso."}}]}`))
	})

	out, err := c.Chat(context.Background(), ChatRequest{
		Model: c.VisionModel(),
		Messages: []Message{
			{Role: "user", Parts: []ContentPart{TextPart("¿Qué ves?"), ImagePart("https://img.example/p.jpg")}},
		},
		MaxTokens: 500, Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Un póster precioso.", out)
	assert.Equal(t, DefaultVisionModel, got.Model)
	assert.JSONEq(t,
		`[{"type":"text","text":"¿Qué ves?"},{"type":"image_url","image_url":{"url":"https://img.example/p.jpg"}}]`,
		string(got.Messages[0].Content))
}

func TestChat_NonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	})

	_, err := c.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hola"}}})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Len(t, se.Body, maxErrorBody)
}

func TestChat_ErrorObjectIn200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	})

	_, err := c.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hola"}}})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "model overloaded", se.Body)
}

func TestChat_EmptyReplies(t *testing.T) {
	for _, body := range []string{`{"choices":[]}`, `{"choices":[{"message":{"content":null}}]}`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		out, err := c.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hola"}}})
		require.NoError(t, err, body)
		assert.Empty(t, out)
	}
}

func TestChat_UndecodableBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	})
	_, err := c.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hola"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestChat_HonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.Chat(ctx, ChatRequest{Messages: []Message{{Role: "user", Content: "hola"}}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
