package retrieval

import "sort"

// SortCandidates orders candidates by score descending. Ties at
// identical score fall back to source priority (FixedQA > KB > Web),
// then lower numeric id, then (for web) most recent date.
func SortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if pa, pb := a.Source.priority(), b.Source.priority(); pa != pb {
			return pa < pb
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Payload.Date > b.Payload.Date
	})
}

// Top returns at most n candidates in sorted order. The input is not
// assumed sorted.
func Top(cands []Candidate, n int) []Candidate {
	out := append([]Candidate(nil), cands...)
	SortCandidates(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MaxScore returns the highest score in the set, 0 for an empty set.
func MaxScore(cands []Candidate) float64 {
	var max float64
	for _, c := range cands {
		if c.Score > max {
			max = c.Score
		}
	}
	return max
}
