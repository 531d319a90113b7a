package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const defaultMaxTokens = 4096

// ChatProvider implements Provider over any OpenAI-compatible chat
// completions API. OpenAI and OpenRouter share this implementation.
type ChatProvider struct {
	name   string
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider against the OpenAI API.
func NewOpenAIProvider(apiKey, model string) *ChatProvider {
	return &ChatProvider{
		name:   "openai",
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewOpenRouterProvider creates a provider against the OpenRouter API.
func NewOpenRouterProvider(apiKey, model string) *ChatProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = "https://openrouter.ai/api/v1"
	return &ChatProvider{
		name:   "openrouter",
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *ChatProvider) Name() string { return p.name }

func (p *ChatProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, err
	}

	out := &CompletionResponse{
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return out, nil
}
