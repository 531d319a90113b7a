package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// Config is the top-level forge configuration, corresponding to .forge.yml.
type Config struct {
	Provider          ProviderType    `yaml:"provider" koanf:"provider"`
	Model             string          `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType    `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string          `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir           string          `yaml:"data_dir" koanf:"data_dir"`
	Port              int             `yaml:"port" koanf:"port"`
	AllowAllOrigins   bool            `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	WebSearch         WebSearchConfig `yaml:"web_search" koanf:"web_search"`
	Ingest            IngestConfig    `yaml:"ingest" koanf:"ingest"`
}

// WebSearchConfig holds live web search settings. The API key is read
// from the TAVILY_API_KEY environment variable, never from the file.
type WebSearchConfig struct {
	BaseURL        string   `yaml:"base_url" koanf:"base_url"`
	TimeoutSeconds int      `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	MaxResults     int      `yaml:"max_results" koanf:"max_results"`
	IncludeDomains []string `yaml:"include_domains" koanf:"include_domains"`
	ExcludeDomains []string `yaml:"exclude_domains" koanf:"exclude_domains"`
}

// IngestConfig holds document ingestion settings.
type IngestConfig struct {
	Include      []string `yaml:"include" koanf:"include"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
	ChunkSize    int      `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap" koanf:"chunk_overlap"`
}
