package llm

import (
	"context"
	"sync"
)

// MockCompletion is a test double for the CompletionService interface. It
// returns queued responses in order (repeating the last one when the queue
// runs dry) and records every call.
type MockCompletion struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Calls     [][]Message // records the messages of each call
	Opts      []CompleteOptions
}

// Complete records the call and returns the next queued response.
func (m *MockCompletion) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, messages)
	m.Opts = append(m.Opts, opts)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "{}", nil
	}
	resp := m.Responses[0]
	if len(m.Responses) > 1 {
		m.Responses = m.Responses[1:]
	}
	return resp, nil
}

// GetModel returns a fixed test model name.
func (m *MockCompletion) GetModel() string {
	return "mock"
}

// CallCount returns the number of Complete calls recorded so far.
func (m *MockCompletion) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockEmbedder is a test double for the EmbeddingGenerator interface. It
// returns a fixed vector per input text, falling back to Default.
type MockEmbedder struct {
	Vectors map[string][]float32
	Default []float32
	Err     error
}

// Embed returns the configured vector for text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	return m.Default, nil
}

// GetModel returns a fixed test model name.
func (m *MockEmbedder) GetModel() string {
	return "mock-embed"
}

// Compile-time assertions.
var (
	_ CompletionService  = (*MockCompletion)(nil)
	_ EmbeddingGenerator = (*MockEmbedder)(nil)
)
