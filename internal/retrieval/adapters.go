package retrieval

import "context"

// FixedQAMatcher scores curated Q&A pairs against a question.
type FixedQAMatcher interface {
	// Search returns scored candidates, highest first.
	Search(ctx context.Context, appID int64, question string) ([]Candidate, error)

	// Get fetches one Q&A pair by id, bypassing scoring. Used when the
	// client resolves a "did you mean" confirmation.
	Get(ctx context.Context, appID, qaID int64) (*Candidate, error)
}

// KBRetriever searches the application's vector knowledge bases.
type KBRetriever interface {
	Search(ctx context.Context, appID int64, question string, topK int) ([]Candidate, error)
}

// WebSearcher performs a live web search. Implementations must bound
// the call with a timeout; a timeout is reported as an error and the
// engine degrades it to an empty candidate set.
type WebSearcher interface {
	Search(ctx context.Context, question string) ([]Candidate, error)
}

// Generator produces the final answer text for context-augmented tiers.
type Generator interface {
	Answer(ctx context.Context, question string, context []Candidate) (string, error)
}
