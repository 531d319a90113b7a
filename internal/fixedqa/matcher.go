package fixedqa

import (
	"context"
	"fmt"
	"strings"

	"github.com/cbitforge/forge/internal/embeddings"
	"github.com/cbitforge/forge/internal/retrieval"
)

const (
	keywordBoostPer = 0.05
	keywordBoostCap = 0.15
)

// Matcher scores an incoming question against an application's active
// QA pairs. The base score is embedding cosine similarity; each curated
// keyword found in the question adds a small boost, capped so keywords
// refine rather than dominate the ranking.
type Matcher struct {
	store    *Store
	embedder embeddings.Embedder
}

func NewMatcher(store *Store, embedder embeddings.Embedder) *Matcher {
	return &Matcher{store: store, embedder: embedder}
}

// Search implements retrieval.FixedQAMatcher.
func (m *Matcher) Search(ctx context.Context, appID int64, question string) ([]retrieval.Candidate, error) {
	pairs, err := m.store.ListActive(ctx, appID)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	vecs, err := m.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	queryVec := vecs[0]

	cands := make([]retrieval.Candidate, 0, len(pairs))
	for _, p := range pairs {
		score := embeddings.Cosine(queryVec, p.embedding)
		if score < 0 {
			score = 0
		}
		score += keywordBoost(question, p.Keywords)
		if score > 1 {
			score = 1
		}
		cands = append(cands, retrieval.Candidate{
			Source: retrieval.SourceFixedQA,
			ID:     p.ID,
			Text:   p.Answer,
			Score:  score,
			Payload: retrieval.Payload{
				Question: p.Question,
				Answer:   p.Answer,
			},
		})
	}
	retrieval.SortCandidates(cands)
	return cands, nil
}

// Get implements retrieval.FixedQAMatcher. It returns the pair as a
// full-confidence candidate, for explicit selections.
func (m *Matcher) Get(ctx context.Context, appID, qaID int64) (*retrieval.Candidate, error) {
	p, err := m.store.Get(ctx, appID, qaID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrNotFound
	}
	return &retrieval.Candidate{
		Source: retrieval.SourceFixedQA,
		ID:     p.ID,
		Text:   p.Answer,
		Score:  1.0,
		Payload: retrieval.Payload{
			Question: p.Question,
			Answer:   p.Answer,
		},
	}, nil
}

// keywordBoost adds keywordBoostPer for each keyword present in the
// question, up to keywordBoostCap. Matching is case-insensitive.
func keywordBoost(question string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(question)
	boost := 0.0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			boost += keywordBoostPer
			if boost >= keywordBoostCap {
				return keywordBoostCap
			}
		}
	}
	return boost
}
