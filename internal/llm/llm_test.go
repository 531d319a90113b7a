package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/cbitforge/forge/internal/config"
	"github.com/cbitforge/forge/internal/retrieval"
)

type stubProvider struct {
	lastReq CompletionRequest
	reply   string
}

func (s *stubProvider) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.lastReq = req
	return &CompletionResponse{Content: s.reply}, nil
}

func (s *stubProvider) Name() string { return "stub" }

func TestGeneratorBuildsNumberedContext(t *testing.T) {
	stub := &stubProvider{reply: "Grounded answer [1]."}
	gen := NewGenerator(stub, "test-model", "")

	cands := []retrieval.Candidate{
		{Source: retrieval.SourceKB, Text: "chunk one", Payload: retrieval.Payload{KBName: "docs"}},
		{Source: retrieval.SourceWeb, Text: "chunk two", Payload: retrieval.Payload{Title: "Post", URL: "https://example.com/p"}},
	}

	answer, err := gen.Answer(context.Background(), "how does it work?", cands)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "Grounded answer [1]." {
		t.Errorf("answer = %q", answer)
	}

	if len(stub.lastReq.Messages) != 2 {
		t.Fatalf("expected system + user message, got %d", len(stub.lastReq.Messages))
	}
	if stub.lastReq.Messages[0].Role != RoleSystem {
		t.Errorf("first message role = %q", stub.lastReq.Messages[0].Role)
	}
	user := stub.lastReq.Messages[1].Content
	for _, want := range []string{"[1] docs", "[2] Post (https://example.com/p)", "chunk one", "Question: how does it work?"} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
	if stub.lastReq.Model != "test-model" {
		t.Errorf("model = %q", stub.lastReq.Model)
	}
}

func TestGeneratorCustomSystemPrompt(t *testing.T) {
	stub := &stubProvider{reply: "ok"}
	gen := NewGenerator(stub, "", "You are the billing bot.")

	if _, err := gen.Answer(context.Background(), "q", nil); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if stub.lastReq.Messages[0].Content != "You are the billing bot." {
		t.Errorf("system prompt = %q", stub.lastReq.Messages[0].Content)
	}
}

func TestGeneratorEmptyCompletion(t *testing.T) {
	stub := &stubProvider{reply: ""}
	gen := NewGenerator(stub, "", "")
	if _, err := gen.Answer(context.Background(), "q", nil); err == nil {
		t.Fatal("expected error for empty completion")
	}
}

func TestNewProviderOllamaNeedsNoKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Provider = config.ProviderOllama
	p, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestNewProviderUnknown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Provider = "mystery"
	if _, err := NewProvider(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
