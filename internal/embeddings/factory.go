package embeddings

import (
	"fmt"
	"os"

	"github.com/cbitforge/forge/internal/config"
)

const defaultOllamaDimensions = 768

// New builds the embedder selected by the config. OpenAI-compatible
// providers read their API key from the environment.
func New(cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI, config.ProviderOpenRouter:
		// OpenRouter has no embeddings endpoint, so both providers go
		// through OpenAI for vectors.
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(cfg.EmbeddingModel)), nil
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg.EmbeddingModel, defaultOllamaDimensions, os.Getenv("OLLAMA_HOST")), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}
