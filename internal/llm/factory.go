package llm

import (
	"fmt"
	"os"

	"github.com/cbitforge/forge/internal/config"
)

// NewProvider creates the LLM provider selected by the config.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, cfg.Model), nil

	case config.ProviderOpenRouter:
		apiKey := os.Getenv("OPENROUTER_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable is not set")
		}
		return NewOpenRouterProvider(apiKey, cfg.Model), nil

	case config.ProviderOllama:
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, cfg.Model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
}
