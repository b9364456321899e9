// Package llm answers questions over compressed document text through an
// OpenRouter-compatible chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/deepcompress/deepcompress/internal/domain"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel   = "anthropic/claude-3.5-haiku"
)

// Config configures the chat completions client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client handles communication with the chat completions API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents the API request structure.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// Response represents the API response structure.
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a single completion choice.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage carries the token accounting reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Answer is the result of a question posed over document context.
type Answer struct {
	Text       string
	Model      string
	TokensUsed int
}

// NewClient creates a client for the configured provider.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "llm").Logger(),
	}
}

const systemPrompt = `You are a document analysis assistant. The user supplies a
document in a compact line-oriented format: entities appear as field:value
pairs separated by | characters, tables declare their column names in a header
line followed by one row per line, and free text appears on text: lines.
Answer strictly from the supplied document. If the document does not contain
the answer, say so.`

// Query answers a question using the compressed document text as the only
// context. Transient provider failures are retried with backoff.
func (c *Client) Query(ctx context.Context, documentText, question string) (*Answer, error) {
	if c.cfg.APIKey == "" {
		return nil, domain.ConfigError("LLM API key is not configured", nil)
	}
	if question == "" {
		return nil, domain.ValidationError("question cannot be empty", nil)
	}

	reqBody := Request{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Document:\n%s\n\nQuestion: %s", documentText, question)},
		},
		Temperature: 0,
		Stream:      false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, domain.ValidationError("failed to marshal request", err)
	}

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, domain.APIError(
			fmt.Sprintf("LLM API returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.APIError("failed to decode LLM response", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, domain.APIError("LLM response contained no choices", nil)
	}

	c.logger.Debug().
		Str("model", parsed.Model).
		Int("tokens", parsed.Usage.TotalTokens).
		Msg("query answered")

	return &Answer{
		Text:       parsed.Choices[0].Message.Content,
		Model:      parsed.Model,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}
