package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaConfig holds Ollama client configuration.
type OllamaConfig struct {
	// BaseURL is the base URL for the Ollama API (default: http://localhost:11434).
	BaseURL string

	// Model is the model used for completions (default: qwen2.5:7b).
	Model string

	// EmbeddingModel is the model used for embeddings (default: nomic-embed-text).
	EmbeddingModel string

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration
}

// OllamaClient implements CompletionService and EmbeddingGenerator against a
// local Ollama instance. All HTTP calls are wrapped with circuit breaker
// protection.
type OllamaClient struct {
	cfg            OllamaConfig
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

// NewOllamaClient creates a new Ollama client with the given configuration.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:7b"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OllamaClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		circuitBreaker: NewCircuitBreaker(),
	}
}

// chatRequest is the request body for /api/chat.
type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response from /api/chat.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// embedRequest is the request body for /api/embed.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the response from /api/embed. The embeddings field is a
// 2D array; we always use the first (and only) embedding.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Complete sends a chat completion to Ollama and returns the response text.
// Failures are wrapped as ErrProvider.
func (c *OllamaClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.complete(ctx, messages, opts)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("%w: ollama circuit breaker open", ErrProvider)
		}
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return result.(string), nil
}

func (c *OllamaClient) complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody := chatRequest{
		Model:  c.cfg.Model,
		Stream: false,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if opts.Temperature > 0 {
		reqBody.Options = map[string]any{"temperature": opts.Temperature}
	}

	respBody, err := c.post(ctx, "/api/chat", reqBody)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	return resp.Message.Content, nil
}

// Embed generates an embedding for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: ollama circuit breaker open", ErrProvider)
		}
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return result.([]float32), nil
}

func (c *OllamaClient) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	respBody, err := c.post(ctx, "/api/embed", embedRequest{
		Model: c.cfg.EmbeddingModel,
		Input: text,
	})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}
	return resp.Embeddings[0], nil
}

// post sends a JSON POST to the given path and returns the raw response body.
func (c *OllamaClient) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// GetModel returns the configured completion model name.
func (c *OllamaClient) GetModel() string {
	return c.cfg.Model
}

// Compile-time assertions.
var (
	_ CompletionService  = (*OllamaClient)(nil)
	_ EmbeddingGenerator = (*OllamaClient)(nil)
)
