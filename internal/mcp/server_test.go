package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cbitforge/forge/internal/app"
	"github.com/cbitforge/forge/internal/confirm"
	"github.com/cbitforge/forge/internal/db"
	"github.com/cbitforge/forge/internal/fusion"
	"github.com/cbitforge/forge/internal/llm"
	"github.com/cbitforge/forge/internal/policy"
	"github.com/cbitforge/forge/internal/retrieval"
)

// stubMatcher serves a fixed candidate list.
type stubMatcher struct {
	cands []retrieval.Candidate
}

func (m *stubMatcher) Search(_ context.Context, _ int64, _ string) ([]retrieval.Candidate, error) {
	return m.cands, nil
}

func (m *stubMatcher) Get(_ context.Context, _ int64, qaID int64) (*retrieval.Candidate, error) {
	for _, c := range m.cands {
		if c.ID == qaID {
			c.Score = 1.0
			return &c, nil
		}
	}
	return nil, nil
}

type stubRetriever struct {
	cands []retrieval.Candidate
}

func (r *stubRetriever) Search(_ context.Context, _ int64, _ string, _ int) ([]retrieval.Candidate, error) {
	return r.cands, nil
}

type stubProvider struct{}

func (stubProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: "generated answer"}, nil
}
func (stubProvider) Name() string { return "stub" }

func newTestServer(t *testing.T, qa retrieval.FixedQAMatcher, kb retrieval.KBRetriever) (*Server, *app.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	apps := app.NewStore(database)
	policies := policy.NewStore(database)
	engine := fusion.NewEngine(qa, kb, nil, confirm.NewStore())

	return NewServer(apps, policies, engine, qa, stubProvider{}, "test-model"), apps
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return tc.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
	}{
		{askTool, "ask"},
		{testRetrievalTool, "test_retrieval"},
		{searchFixedQATool, "search_fixed_qa"},
		{listAppsTool, "list_applications"},
	}
	for _, tt := range tests {
		if tt.tool.Name != tt.wantName {
			t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
		}
	}
}

func TestHandleAskDirectAnswer(t *testing.T) {
	qa := &stubMatcher{cands: []retrieval.Candidate{{
		Source: retrieval.SourceFixedQA,
		ID:     1,
		Text:   "Resets are done from the account page.",
		Score:  0.97,
		Payload: retrieval.Payload{
			Question: "How do I reset my password?",
			Answer:   "Resets are done from the account page.",
		},
	}}}
	srv, apps := newTestServer(t, qa, &stubRetriever{})

	a := &app.Application{Name: "Support Bot"}
	if err := apps.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	res, err := srv.handleAsk(context.Background(), callRequest("ask", map[string]any{
		"app_id":   float64(a.ID),
		"question": "How do I reset my password?",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}

	text := resultText(t, res)
	if !strings.Contains(text, "Resets are done from the account page.") {
		t.Errorf("answer text missing:\n%s", text)
	}
	if !strings.Contains(text, "Tier: A") {
		t.Errorf("tier missing:\n%s", text)
	}
}

func TestHandleAskUnknownApp(t *testing.T) {
	srv, _ := newTestServer(t, &stubMatcher{}, &stubRetriever{})

	res, err := srv.handleAsk(context.Background(), callRequest("ask", map[string]any{
		"app_id":   float64(999),
		"question": "anything",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected error result for unknown app")
	}
}

func TestHandleTestRetrievalSkipsGeneration(t *testing.T) {
	kb := &stubRetriever{cands: []retrieval.Candidate{{
		Source:  retrieval.SourceKB,
		Text:    "The service listens on port 8080 by default.",
		Score:   0.91,
		Payload: retrieval.Payload{KBName: "docs", DocumentID: "config.md", ChunkID: "0"},
	}}}
	srv, apps := newTestServer(t, &stubMatcher{}, kb)

	a := &app.Application{Name: "Docs Bot"}
	if err := apps.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	res, err := srv.handleTestRetrieval(context.Background(), callRequest("test_retrieval", map[string]any{
		"app_id":   float64(a.ID),
		"question": "what port does the service use",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}

	text := resultText(t, res)
	if !strings.Contains(text, "Action: context_augmented") {
		t.Errorf("action missing:\n%s", text)
	}
	if !strings.Contains(text, "The service listens on port 8080") {
		t.Errorf("context missing:\n%s", text)
	}
	if strings.Contains(text, "generated answer") {
		t.Errorf("generation should not run:\n%s", text)
	}
}

func TestHandleSearchFixedQA(t *testing.T) {
	qa := &stubMatcher{cands: []retrieval.Candidate{
		{Source: retrieval.SourceFixedQA, ID: 1, Score: 0.9, Payload: retrieval.Payload{Question: "q1", Answer: "a1"}},
		{Source: retrieval.SourceFixedQA, ID: 2, Score: 0.7, Payload: retrieval.Payload{Question: "q2", Answer: "a2"}},
	}}
	srv, _ := newTestServer(t, qa, &stubRetriever{})

	res, err := srv.handleSearchFixedQA(context.Background(), callRequest("search_fixed_qa", map[string]any{
		"app_id": float64(1),
		"query":  "q",
		"limit":  float64(1),
	}))
	if err != nil {
		t.Fatal(err)
	}

	text := resultText(t, res)
	if !strings.Contains(text, "q1") {
		t.Errorf("top match missing:\n%s", text)
	}
	if strings.Contains(text, "q2") {
		t.Errorf("limit not applied:\n%s", text)
	}
}

func TestHandleListApps(t *testing.T) {
	srv, apps := newTestServer(t, &stubMatcher{}, &stubRetriever{})

	res, err := srv.handleListApps(context.Background(), callRequest("list_applications", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, res), "No applications registered") {
		t.Error("expected empty-state message")
	}

	a := &app.Application{Name: "Support Bot"}
	if err := apps.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	res, err = srv.handleListApps(context.Background(), callRequest("list_applications", nil))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Support Bot") || !strings.Contains(text, "/v1/apps/support-bot/chat/completions") {
		t.Errorf("listing incomplete:\n%s", text)
	}
}

func TestMissingRequiredParams(t *testing.T) {
	srv, _ := newTestServer(t, &stubMatcher{}, &stubRetriever{})

	res, err := srv.handleAsk(context.Background(), callRequest("ask", map[string]any{"question": "q"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected error for missing app_id")
	}

	res, err = srv.handleTestRetrieval(context.Background(), callRequest("test_retrieval", map[string]any{"app_id": float64(1)}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected error for missing question")
	}
}
