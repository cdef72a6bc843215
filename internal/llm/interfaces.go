// Package llm provides completion-service clients for memory extraction and
// insight regeneration, plus the prompt builders and response parsers the
// engine uses with them.
package llm

import (
	"context"
	"errors"
)

// ErrProvider wraps any completion-service call failure: network errors,
// non-2xx responses, auth failures, and timeouts. Extraction and regeneration
// treat it as non-fatal.
var ErrProvider = errors.New("completion provider error")

// ErrParse indicates the completion response was not valid structured output.
// Callers treat it as "nothing extracted".
var ErrParse = errors.New("unparseable completion response")

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"`
}

// CompleteOptions tunes a single completion call.
type CompleteOptions struct {
	// Temperature controls output variance. Extraction and regeneration
	// use a low value for stable structured output.
	Temperature float64

	// MaxTokens bounds the response length. Zero means the client default.
	MaxTokens int
}

// CompletionService is the interface to the language-model completion
// service. Implementations must honour ctx cancellation and apply an
// explicit per-call timeout.
type CompletionService interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)
	GetModel() string
}

// EmbeddingGenerator generates vector embeddings for memory content. It is
// optional: when absent, conflict matching falls back to token overlap.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
