package llm

import (
	"fmt"

	"github.com/duetware/keepsake/internal/config"
)

// NewCompletionService creates the appropriate CompletionService based on the
// configured provider.
func NewCompletionService(cfg config.LLMConfig) (CompletionService, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		}), nil
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{
			BaseURL:        cfg.OllamaURL,
			Model:          cfg.OllamaModel,
			EmbeddingModel: cfg.OllamaEmbeddingModel,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

// NewEmbedder creates the appropriate EmbeddingGenerator, or (nil, nil) for
// providers that don't support embeddings (Anthropic). The engine treats a
// nil embedder as "token-overlap matching only".
func NewEmbedder(cfg config.LLMConfig) (EmbeddingGenerator, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{
			BaseURL:        cfg.OllamaURL,
			Model:          cfg.OllamaModel,
			EmbeddingModel: cfg.OllamaEmbeddingModel,
		}), nil
	default:
		return nil, nil
	}
}
