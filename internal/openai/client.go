// Package openai is a small client for the OpenAI chat-completions endpoint.
// It implements analysis.Completer and the multi-turn calls the chat
// assistant needs, and nothing else.
package openai

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

	"github.com/420btc/KinemaTV/internal/analysis"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultVisionModel = "gpt-4o"

	defaultTimeout = 60 * time.Second
	maxErrorBody   = 512
)

// ErrMissingAPIKey is returned by New when no key is configured.
var ErrMissingAPIKey = errors.New("openai: API key is not configured")

// StatusError reports a non-2xx reply or an error object in the body.
type StatusError struct {
	StatusCode int
	// Body is the provider's message, truncated to a few hundred bytes.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openai: status %d: %s", e.StatusCode, e.Body)
}

// Config holds the client settings. Empty fields take the package defaults.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client calls the chat-completions API. It is safe for concurrent use.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	visionModel string
	http        *http.Client
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:      key,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		http:        cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.visionModel == "" {
		c.visionModel = DefaultVisionModel
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	return c, nil
}

// Model returns the default text model.
func (c *Client) Model() string { return c.model }

// VisionModel returns the model used for messages carrying images.
func (c *Client) VisionModel() string { return c.visionModel }

// ContentPart is one element of a multi-part message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

func TextPart(text string) ContentPart { return ContentPart{Type: "text", Text: text} }

func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url}}
}

// Message is a chat message. When Parts is non-empty it is sent instead of
// Content.
type Message struct {
	Role    string
	Content string
	Parts   []ContentPart
}

func (m Message) MarshalJSON() ([]byte, error) {
	var content any = m.Content
	if len(m.Parts) > 0 {
		content = m.Parts
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	}{m.Role, content})
}

// ChatRequest is a multi-turn completion request.
type ChatRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// Model overrides the client default when non-empty.
	Model string
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements analysis.Completer with a system and a user message.
func (c *Client) Complete(ctx context.Context, comp analysis.Completion) (string, error) {
	return c.Chat(ctx, ChatRequest{
		Messages: []Message{
			{Role: "system", Content: comp.System},
			{Role: "user", Content: comp.User},
		},
		MaxTokens:   comp.MaxTokens,
		Temperature: comp.Temperature,
		Model:       comp.Model,
	})
}

// Chat sends req and returns the first choice's content. A reply without
// choices or with null content yields "" and a nil error.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if out.Error != nil {
		msg := out.Error.Message
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		return "", nil
	}
	return *out.Choices[0].Message.Content, nil
}
