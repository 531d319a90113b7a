package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cbitforge/forge/internal/config"
	"github.com/cbitforge/forge/internal/retrieval"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("TAVILY_API_KEY", "test-key")
	return NewClient(config.WebSearchConfig{
		BaseURL:        srv.URL,
		TimeoutSeconds: 5,
		MaxResults:     3,
	})
}

func TestSearchParsesResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "latest release" {
			t.Errorf("query = %q", req.Query)
		}
		if !req.IncludeAnswer {
			t.Error("include_answer should be set")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"answer": "The latest release is v2.1.",
			"results": []map[string]any{
				{"title": "Release notes", "url": "https://example.com/notes", "content": "v2.1 shipped", "score": 0.82, "published_date": "2026-08-01"},
				{"title": "Old post", "url": "https://example.com/old", "content": "v1.0 shipped", "score": 0.41, "published_date": "2025-01-01"},
			},
		})
	})

	cands, err := client.Search(context.Background(), "latest release")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates (2 results + answer), got %d", len(cands))
	}

	for _, c := range cands {
		if c.Source != retrieval.SourceWeb {
			t.Errorf("source = %q", c.Source)
		}
	}
	// The synthesized answer scores at the level of the best result and
	// carries no URL.
	var sawAnswer bool
	for _, c := range cands {
		if c.Payload.URL == "" {
			sawAnswer = true
			if c.Score != 0.82 {
				t.Errorf("answer score = %v", c.Score)
			}
		}
	}
	if !sawAnswer {
		t.Error("expected a synthesized answer candidate")
	}
}

func TestSearchNoAnswer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "A", "url": "https://example.com/a", "content": "text", "score": 0.6},
			},
		})
	})

	cands, err := client.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(cands) != 1 {
		t.Errorf("expected 1 candidate, got %d", len(cands))
	}
}

func TestSearchServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	if _, err := client.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestSearchMissingAPIKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	client := NewClient(config.WebSearchConfig{})
	if _, err := client.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error when key is unset")
	}
}
