package citation

import (
	"testing"

	"github.com/cbitforge/forge/internal/retrieval"
)

func kbCand(doc, chunk string, score float64) retrieval.Candidate {
	return retrieval.Candidate{
		Source: retrieval.SourceKB,
		Score:  score,
		Payload: retrieval.Payload{
			DocumentID: doc,
			ChunkID:    chunk,
			Title:      doc,
		},
	}
}

func webCand(rawURL, date string, score float64) retrieval.Candidate {
	return retrieval.Candidate{
		Source: retrieval.SourceWeb,
		Score:  score,
		Payload: retrieval.Payload{
			URL:   rawURL,
			Title: rawURL,
			Date:  date,
		},
	}
}

func TestBuildSequentialIDs(t *testing.T) {
	got := Build([]retrieval.Candidate{
		kbCand("doc-a", "0", 0.9),
		kbCand("doc-b", "0", 0.7),
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(got))
	}
	for i, c := range got {
		if c.ID != i+1 {
			t.Errorf("citation %d has id %d", i, c.ID)
		}
	}
}

func TestBuildDedupesKBChunks(t *testing.T) {
	got := Build([]retrieval.Candidate{
		kbCand("doc-a", "3", 0.7),
		kbCand("doc-a", "3", 0.9),
		kbCand("doc-a", "4", 0.6),
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(got))
	}
	// The duplicate keeps the higher score and ranks first.
	if got[0].Score != 0.9 || got[0].ChunkID != "3" {
		t.Errorf("got[0] = %+v", got[0])
	}
}

func TestBuildDedupesNormalizedURLs(t *testing.T) {
	got := Build([]retrieval.Candidate{
		webCand("https://Example.com/page/", "2026-01-01", 0.8),
		webCand("https://example.com/page#section", "2026-01-02", 0.6),
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(got))
	}
	if got[0].Score != 0.8 {
		t.Errorf("kept wrong duplicate: %+v", got[0])
	}
}

func TestBuildCapsAtThree(t *testing.T) {
	got := Build([]retrieval.Candidate{
		kbCand("a", "0", 0.9),
		kbCand("b", "0", 0.8),
		kbCand("c", "0", 0.7),
		kbCand("d", "0", 0.6),
	})
	if len(got) != MaxCitations {
		t.Fatalf("expected %d citations, got %d", MaxCitations, len(got))
	}
	if got[2].DocumentID != "c" {
		t.Errorf("lowest scored survivor should be c, got %q", got[2].DocumentID)
	}
}

func TestBuildTieBreaksOnRecency(t *testing.T) {
	got := Build([]retrieval.Candidate{
		webCand("https://old.example.com/a", "2025-01-01", 0.8),
		webCand("https://new.example.com/b", "2026-06-01", 0.8),
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(got))
	}
	if got[0].URL != "https://new.example.com/b" {
		t.Errorf("newer result should rank first, got %q", got[0].URL)
	}
}

func TestBuildSkipsFixedQA(t *testing.T) {
	got := Build([]retrieval.Candidate{
		{Source: retrieval.SourceFixedQA, Score: 0.95},
		kbCand("doc", "0", 0.5),
	})
	if len(got) != 1 || got[0].Source != "kb" {
		t.Errorf("fixed QA answers carry no citations, got %+v", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://Example.COM/Page/", "https://example.com/Page"},
		{"http://example.com:80/x", "http://example.com/x"},
		{"https://example.com:443/x#frag", "https://example.com/x"},
		{"not a url/", "not a url"},
	}
	for _, tt := range tests {
		if got := normalizeURL(tt.in); got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
