package compose

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cbitforge/forge/internal/citation"
	"github.com/cbitforge/forge/internal/fusion"
	"github.com/cbitforge/forge/internal/retrieval"
)

const (
	refusalText = "I don't have enough reliable information to answer that."
	authText    = "I couldn't find a confident answer in my knowledge sources. A web search might help; send the request again with force_web_search to authorize it."
)

// Compose turns a decision into the wire response, invoking the
// generator only for the actions that need it.
func Compose(ctx context.Context, d *fusion.Decision, gen retrieval.Generator, question, model string) (*ChatResponse, error) {
	content := d.Answer
	var generationMS int64

	if d.NeedsGeneration() {
		start := time.Now()
		text, err := generate(ctx, d, gen, question)
		if err != nil {
			return nil, err
		}
		content = text
		generationMS = time.Since(start).Milliseconds()
	}

	if content == "" && d.Action == fusion.ActionRefuse {
		content = refusalText
	}

	resp := &ChatResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []Choice{{
			Index: 0,
			Message: ResponseMessage{
				Role:    "assistant",
				Content: content,
				Metadata: Metadata{
					Source:                d.Source,
					RetrievalConfidence:   d.Confidence,
					RequiresWebSearchAuth: d.RequiresWebAuth,
					Timing: Timing{
						RetrievalMS:  d.RetrievalMS,
						GenerationMS: generationMS,
					},
					StrategyInfo: StrategyInfo{
						Tier:            string(d.Tier),
						Citations:       citation.Build(d.Context),
						Explanation:     d.Explanation,
						WebSearchOption: d.WebSearchOption,
					},
				},
			},
			FinishReason: "stop",
		}},
		CbitMetadata: CbitMetadata{
			NeedsConfirmation:  d.Action == fusion.ActionConfirmSuggestions,
			ConfirmationToken:  d.ConfirmationToken,
			SuggestedQuestions: d.Suggestions,
		},
	}
	if resp.CbitMetadata.SuggestedQuestions == nil {
		resp.CbitMetadata.SuggestedQuestions = []fusion.Suggestion{}
	}
	return resp, nil
}

func generate(ctx context.Context, d *fusion.Decision, gen retrieval.Generator, question string) (string, error) {
	switch d.Action {
	case fusion.ActionSmalltalk:
		return gen.Answer(ctx, question, nil)

	case fusion.ActionRequireAuthorization:
		// Best effort from whatever low-confidence context exists.
		if len(d.Context) == 0 {
			return authText, nil
		}
		text, err := gen.Answer(ctx, question, d.Context)
		if err != nil {
			return authText, nil
		}
		return text, nil

	case fusion.ActionContextAugmented, fusion.ActionAutoWebAugment:
		text, err := gen.Answer(ctx, question, d.Context)
		if err != nil {
			return "", fmt.Errorf("generate answer: %w", err)
		}
		return text, nil
	}
	return d.Answer, nil
}
