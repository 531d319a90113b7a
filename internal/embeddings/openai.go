package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openaiBatchLimit bounds how many inputs go into one embeddings call.
const openaiBatchLimit = 100

// OpenAIModel identifies a supported OpenAI embedding model.
type OpenAIModel string

const (
	ModelTextEmbedding3Small OpenAIModel = "text-embedding-3-small"
	ModelTextEmbedding3Large OpenAIModel = "text-embedding-3-large"
)

var openaiDimensions = map[OpenAIModel]int{
	ModelTextEmbedding3Small: 1536,
	ModelTextEmbedding3Large: 3072,
}

func (m OpenAIModel) dimensions() int {
	if d, ok := openaiDimensions[m]; ok {
		return d
	}
	return 1536
}

// OpenAIEmbedder embeds text through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  OpenAIModel
}

// NewOpenAIEmbedder creates an embedder for the given API key and model.
func NewOpenAIEmbedder(apiKey string, model OpenAIModel) *OpenAIEmbedder {
	if model == "" {
		model = ModelTextEmbedding3Small
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Name() string    { return string(e.model) }
func (e *OpenAIEmbedder) Dimensions() int { return e.model.dimensions() }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += openaiBatchLimit {
		batch := texts[start:min(start+openaiBatchLimit, len(texts))]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embeddings: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(batch))
		}
		for _, d := range resp.Data {
			vecs = append(vecs, d.Embedding)
		}
	}
	return vecs, nil
}
