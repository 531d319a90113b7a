package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cbitforge/forge/internal/citation"
	"github.com/cbitforge/forge/internal/compose"
	"github.com/cbitforge/forge/internal/fusion"
	"github.com/cbitforge/forge/internal/llm"
	"github.com/cbitforge/forge/internal/retrieval"
)

// handleAsk answers a question end to end: fuse sources, then generate.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	appID, err := request.RequireInt("app_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: app_id"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	application, err := s.apps.Get(ctx, int64(appID))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("application %d not found", appID)), nil
	}

	pol, err := s.policies.Load(ctx, application.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading policy: %v", err)), nil
	}

	decision, err := s.engine.Decide(ctx, fusion.Request{
		AppID:          application.ID,
		Question:       question,
		ForceWebSearch: request.GetBool("force_web_search", false),
	}, &pol)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	var gen retrieval.Generator
	if s.provider != nil {
		model := application.LLMModel
		if model == "" {
			model = s.model
		}
		gen = llm.NewGenerator(s.provider, model, application.SystemPrompt)
	}
	if gen == nil {
		return mcp.NewToolResultText(formatDecision(decision)), nil
	}

	resp, err := compose.Compose(ctx, decision, gen, question, s.model)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("composing answer: %v", err)), nil
	}

	return mcp.NewToolResultText(formatAnswer(resp)), nil
}

// handleTestRetrieval runs the fusion pipeline without generation.
func (s *Server) handleTestRetrieval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	appID, err := request.RequireInt("app_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: app_id"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	pol, err := s.policies.Load(ctx, int64(appID))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading policy: %v", err)), nil
	}

	decision, err := s.engine.Decide(ctx, fusion.Request{
		AppID:    int64(appID),
		Question: question,
	}, &pol)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatDecision(decision)), nil
}

// handleSearchFixedQA ranks curated QA pairs against a query.
func (s *Server) handleSearchFixedQA(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	appID, err := request.RequireInt("app_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: app_id"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	cands, err := s.qa.Search(ctx, int64(appID), query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	cands = retrieval.Top(cands, limit)

	if len(cands) == 0 {
		return mcp.NewToolResultText("No matching QA pairs found."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matching pair(s):\n", len(cands))
	for i, c := range cands {
		fmt.Fprintf(&sb, "\n--- Match %d ---\n", i+1)
		fmt.Fprintf(&sb, "QA ID: %d\n", c.ID)
		fmt.Fprintf(&sb, "Similarity: %.1f%%\n", c.Score*100)
		fmt.Fprintf(&sb, "Q: %s\n", c.Payload.Question)
		fmt.Fprintf(&sb, "A: %s\n", c.Payload.Answer)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleListApps lists registered applications.
func (s *Server) handleListApps(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apps, err := s.apps.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing applications: %v", err)), nil
	}
	if len(apps) == 0 {
		return mcp.NewToolResultText("No applications registered. Run `forge` with the admin API to create one."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d application(s):\n", len(apps))
	for _, a := range apps {
		status := "active"
		if !a.IsActive {
			status = "inactive"
		}
		fmt.Fprintf(&sb, "\n[%d] %s (%s)\n", a.ID, a.Name, status)
		fmt.Fprintf(&sb, "Endpoint: /v1/apps/%s/chat/completions\n", a.EndpointPath)
		fmt.Fprintf(&sb, "Requests served: %d\n", a.TotalRequests)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatDecision renders a fusion decision for agent consumption.
func formatDecision(d *fusion.Decision) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Action: %s\n", d.Action)
	fmt.Fprintf(&sb, "Tier: %s\n", d.Tier)
	fmt.Fprintf(&sb, "Source: %s\n", d.Source)
	fmt.Fprintf(&sb, "Confidence: %.3f\n", d.Confidence)
	fmt.Fprintf(&sb, "Retrieval: %dms\n", d.RetrievalMS)
	if d.Explanation != "" {
		fmt.Fprintf(&sb, "Explanation: %s\n", d.Explanation)
	}
	if d.RequiresWebAuth {
		sb.WriteString("Requires web search authorization.\n")
	}

	if d.Answer != "" {
		fmt.Fprintf(&sb, "\nAnswer:\n%s\n", d.Answer)
	}
	for i, sug := range d.Suggestions {
		if i == 0 {
			sb.WriteString("\nSuggested questions:\n")
		}
		fmt.Fprintf(&sb, "- [%d] %s (%.1f%%)\n", sug.QAID, sug.Question, sug.Similarity*100)
	}
	for i, c := range d.Context {
		fmt.Fprintf(&sb, "\n--- Context %d (%s, %.1f%%) ---\n", i+1, c.Source, c.Score*100)
		sb.WriteString(c.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatAnswer renders a composed chat response plus citations.
func formatAnswer(resp *compose.ChatResponse) string {
	var sb strings.Builder
	content := resp.Choices[0].Message.Content
	if content != "" {
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	meta := resp.Choices[0].Message.Metadata
	fmt.Fprintf(&sb, "\nSource: %s\n", meta.Source)
	fmt.Fprintf(&sb, "Tier: %s\n", meta.StrategyInfo.Tier)
	fmt.Fprintf(&sb, "Confidence: %.3f\n", meta.RetrievalConfidence)

	if len(meta.StrategyInfo.Citations) > 0 {
		sb.WriteString("\nCitations:\n")
		for _, c := range meta.StrategyInfo.Citations {
			sb.WriteString(formatCitation(c))
		}
	}
	if resp.CbitMetadata.NeedsConfirmation {
		sb.WriteString("\nNeeds confirmation. Suggested questions:\n")
		for _, sug := range resp.CbitMetadata.SuggestedQuestions {
			fmt.Fprintf(&sb, "- [%d] %s\n", sug.QAID, sug.Question)
		}
	}
	return sb.String()
}

func formatCitation(c citation.Citation) string {
	if c.URL != "" {
		return fmt.Sprintf("[%d] %s (%s)\n", c.ID, c.Title, c.URL)
	}
	return fmt.Sprintf("[%d] %s\n", c.ID, c.Title)
}
