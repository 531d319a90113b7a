package embeddings

import (
	"math"
	"testing"

	"github.com/cbitforge/forge/internal/config"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"length mismatch", []float32{1, 2}, []float32{1}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"empty", nil, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenAIModelDimensions(t *testing.T) {
	if d := ModelTextEmbedding3Small.dimensions(); d != 1536 {
		t.Errorf("small model dimensions = %d", d)
	}
	if d := ModelTextEmbedding3Large.dimensions(); d != 3072 {
		t.Errorf("large model dimensions = %d", d)
	}
	if d := OpenAIModel("unknown").dimensions(); d != 1536 {
		t.Errorf("unknown model should default to 1536, got %d", d)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.EmbeddingProvider = "not-a-provider"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown embedding provider")
	}
}

func TestNewOllama(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.EmbeddingProvider = config.ProviderOllama
	cfg.EmbeddingModel = "nomic-embed-text"

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Name() != "ollama/nomic-embed-text" {
		t.Errorf("name = %q", e.Name())
	}
}
