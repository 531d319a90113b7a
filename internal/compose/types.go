// Package compose maps fusion decisions onto the OpenAI-compatible
// wire contract served to client applications.
package compose

import (
	"strings"

	"github.com/cbitforge/forge/internal/citation"
	"github.com/cbitforge/forge/internal/fusion"
)

// ChatMessage is one turn of an incoming conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat-completions request body, extended with the
// fusion control fields.
type ChatRequest struct {
	Model             string        `json:"model,omitempty"`
	Messages          []ChatMessage `json:"messages"`
	Stream            bool          `json:"stream,omitempty"`
	Temperature       float64       `json:"temperature,omitempty"`
	MaxTokens         int           `json:"max_tokens,omitempty"`
	SkipFixedQA       bool          `json:"skip_fixed_qa,omitempty"`
	SelectedQAID      *int64        `json:"selected_qa_id,omitempty"`
	ConfirmationToken string        `json:"confirmation_token,omitempty"`
	ForceWebSearch    bool          `json:"force_web_search,omitempty"`
}

// Question returns the last non-empty user message.
func (r *ChatRequest) Question() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" && strings.TrimSpace(r.Messages[i].Content) != "" {
			return strings.TrimSpace(r.Messages[i].Content)
		}
	}
	return ""
}

// Timing reports per-phase latency in milliseconds.
type Timing struct {
	RetrievalMS  int64 `json:"retrieval_ms"`
	GenerationMS int64 `json:"generation_ms"`
}

// StrategyInfo exposes the fusion internals for debugging clients.
type StrategyInfo struct {
	Tier            string              `json:"tier"`
	Citations       []citation.Citation `json:"citations"`
	Explanation     string              `json:"explanation"`
	WebSearchOption bool                `json:"web_search_option"`
}

// Metadata rides on the assistant message.
type Metadata struct {
	Source                string       `json:"source"`
	RetrievalConfidence   float64      `json:"retrieval_confidence"`
	RequiresWebSearchAuth bool         `json:"requires_web_search_auth"`
	Timing                Timing       `json:"timing"`
	StrategyInfo          StrategyInfo `json:"_strategy_info"`
}

// ResponseMessage is the assistant turn in a choice.
type ResponseMessage struct {
	Role     string   `json:"role"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Choice mirrors the OpenAI choices array.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// CbitMetadata carries the confirmation round-trip state.
type CbitMetadata struct {
	NeedsConfirmation  bool                `json:"needs_confirmation"`
	ConfirmationToken  string              `json:"confirmation_token,omitempty"`
	SuggestedQuestions []fusion.Suggestion `json:"suggested_questions"`
}

// ChatResponse is the full response body.
type ChatResponse struct {
	ID           string       `json:"id"`
	Object       string       `json:"object"`
	Created      int64        `json:"created"`
	Model        string       `json:"model"`
	Choices      []Choice     `json:"choices"`
	CbitMetadata CbitMetadata `json:"cbit_metadata"`
}
