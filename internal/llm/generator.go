package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cbitforge/forge/internal/retrieval"
)

const defaultSystemPrompt = `You are a helpful assistant. Answer the user's question using only the provided context. If the context does not contain the answer, say so instead of guessing. Reference sources as [1], [2] when the context is numbered.`

// Generator turns retrieved context into a final answer via an LLM
// provider. Model and system prompt are per application; empty values
// fall back to the provider default and a grounding prompt.
type Generator struct {
	provider     Provider
	model        string
	systemPrompt string
}

func NewGenerator(provider Provider, model, systemPrompt string) *Generator {
	return &Generator{provider: provider, model: model, systemPrompt: systemPrompt}
}

// Answer implements retrieval.Generator.
func (g *Generator) Answer(ctx context.Context, question string, contextCands []retrieval.Candidate) (string, error) {
	system := g.systemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}

	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Model: g.model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: buildPrompt(question, contextCands)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}
	if resp.Content == "" {
		return "", fmt.Errorf("llm returned empty completion")
	}
	return resp.Content, nil
}

// buildPrompt numbers the context chunks so the model can cite them.
func buildPrompt(question string, cands []retrieval.Candidate) string {
	if len(cands) == 0 {
		return question
	}

	var sb strings.Builder
	sb.WriteString("Context:\n\n")
	for i, c := range cands {
		sb.WriteString(fmt.Sprintf("[%d]", i+1))
		switch {
		case c.Payload.Title != "":
			sb.WriteString(" " + c.Payload.Title)
		case c.Payload.KBName != "":
			sb.WriteString(" " + c.Payload.KBName)
		}
		if c.Payload.URL != "" {
			sb.WriteString(" (" + c.Payload.URL + ")")
		}
		sb.WriteString("\n")
		sb.WriteString(c.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: " + question)
	return sb.String()
}
