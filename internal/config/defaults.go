package config

// DefaultExcludes are glob patterns excluded from ingestion by default.
var DefaultExcludes = []string{
	"node_modules/**",
	".git/**",
	"vendor/**",
	"*.min.*",
	"*.lock",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		DataDir:           ".forge",
		Port:              8090,
		WebSearch: WebSearchConfig{
			BaseURL:        "https://api.tavily.com",
			TimeoutSeconds: 10,
			MaxResults:     5,
		},
		Ingest: IngestConfig{
			Include:      []string{"**/*.md", "**/*.txt"},
			Exclude:      DefaultExcludes,
			ChunkSize:    1200,
			ChunkOverlap: 200,
		},
	}
}
