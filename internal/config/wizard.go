package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .forge.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to forge! Let's configure your answering server.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "openrouter", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model name.
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: defaultModelFor(cfg.Provider),
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.Model = model

	// 3. Embeddings follow the provider: Ollama embeds locally, everything
	// else uses OpenAI embeddings.
	if cfg.Provider == ProviderOllama {
		cfg.EmbeddingProvider = ProviderOllama
		cfg.EmbeddingModel = "nomic-embed-text"
	} else {
		cfg.EmbeddingProvider = ProviderOpenAI
		cfg.EmbeddingModel = "text-embedding-3-small"
	}

	// 4. Data directory.
	dataDirPrompt := promptui.Prompt{
		Label:   "Data directory (database and vector index)",
		Default: cfg.DataDir,
	}
	dataDir, err := dataDirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 5. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("invalid port")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// 6. Ingest include patterns.
	includePrompt := promptui.Prompt{
		Label:   "Ingest include patterns (comma-separated globs)",
		Default: "**/*.md,**/*.txt",
	}
	includeStr, err := includePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	if patterns := splitAndTrim(includeStr); len(patterns) > 0 {
		cfg.Ingest.Include = patterns
	}

	// Check for API keys.
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running forge serve.\n", envVar)
	}
	if os.Getenv("TAVILY_API_KEY") == "" {
		fmt.Println("Note: Set TAVILY_API_KEY to enable live web search.")
	}

	configPath := ".forge.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}

func defaultModelFor(p ProviderType) string {
	switch p {
	case ProviderOllama:
		return "llama3"
	case ProviderOpenRouter:
		return "openai/gpt-4o"
	default:
		return "gpt-4o"
	}
}
