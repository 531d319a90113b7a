package vectordb

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/cbitforge/forge/internal/retrieval"
)

// Retriever searches every knowledge base of an application and merges
// the results into fusion candidates. Raw similarity is adjusted per
// base as min(score * weight * boost_factor, 1); equal adjusted scores
// rank the lower-priority-number base first.
type Retriever struct {
	registry *Registry
	store    VectorStore
}

func NewRetriever(registry *Registry, store VectorStore) *Retriever {
	return &Retriever{registry: registry, store: store}
}

// Search implements retrieval.KBRetriever.
func (r *Retriever) Search(ctx context.Context, appID int64, question string, topK int) ([]retrieval.Candidate, error) {
	kbs, err := r.registry.ListByApp(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("load knowledge bases: %w", err)
	}
	if len(kbs) == 0 {
		return nil, nil
	}

	type scored struct {
		cand     retrieval.Candidate
		priority int
	}
	var merged []scored

	failed := 0
	for _, kb := range kbs {
		results, err := r.store.Search(ctx, kb.Collection, question, topK)
		if err != nil {
			log.Printf("[vectordb] search %q failed: %v", kb.Name, err)
			failed++
			continue
		}
		for _, res := range results {
			score := float64(res.Similarity) * kb.Weight * kb.BoostFactor
			if score > 1 {
				score = 1
			}
			merged = append(merged, scored{
				cand: retrieval.Candidate{
					Source: retrieval.SourceKB,
					ID:     kb.ID,
					Text:   res.Document.Content,
					Score:  score,
					Payload: retrieval.Payload{
						KBName:     kb.Name,
						DocumentID: res.Document.Metadata.DocumentID,
						ChunkID:    res.Document.Metadata.ChunkID,
						Title:      res.Document.Metadata.Title,
					},
				},
				priority: kb.Priority,
			})
		}
	}

	if failed == len(kbs) {
		return nil, fmt.Errorf("all %d knowledge bases failed", failed)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].cand.Score != merged[j].cand.Score {
			return merged[i].cand.Score > merged[j].cand.Score
		}
		return merged[i].priority < merged[j].priority
	})
	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}

	out := make([]retrieval.Candidate, len(merged))
	for i, s := range merged {
		out[i] = s.cand
	}
	return out, nil
}
