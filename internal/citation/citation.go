// Package citation turns the candidates that backed an answer into the
// compact citation list exposed in response metadata.
package citation

import (
	"net/url"
	"sort"
	"strings"

	"github.com/cbitforge/forge/internal/retrieval"
)

// MaxCitations caps how many citations a single answer carries.
const MaxCitations = 3

// Citation is one attributed source in a response.
type Citation struct {
	ID         int     `json:"id"`
	Source     string  `json:"source"`
	Title      string  `json:"title,omitempty"`
	URL        string  `json:"url,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	ChunkID    string  `json:"chunk_id,omitempty"`
	Score      float64 `json:"score"`
	Date       string  `json:"date,omitempty"`
}

// Build deduplicates, ranks, and caps the candidates used as answer
// context. KB chunks dedupe on (document_id, chunk_id); web results
// dedupe on normalized URL, keeping the higher-scored duplicate.
// Citations sort by score descending, then newer date first, and get
// sequential ids starting at 1.
func Build(used []retrieval.Candidate) []Citation {
	type keyed struct {
		key string
		c   retrieval.Candidate
	}
	seen := make(map[string]int)
	var kept []keyed

	for _, c := range used {
		var key string
		switch c.Source {
		case retrieval.SourceKB:
			key = "kb|" + c.Payload.DocumentID + "|" + c.Payload.ChunkID
		case retrieval.SourceWeb:
			if c.Payload.URL == "" {
				continue
			}
			key = "web|" + normalizeURL(c.Payload.URL)
		default:
			continue
		}

		if i, dup := seen[key]; dup {
			if c.Score > kept[i].c.Score {
				kept[i].c = c
			}
			continue
		}
		seen[key] = len(kept)
		kept = append(kept, keyed{key: key, c: c})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].c.Score != kept[j].c.Score {
			return kept[i].c.Score > kept[j].c.Score
		}
		return kept[i].c.Payload.Date > kept[j].c.Payload.Date
	})

	if len(kept) > MaxCitations {
		kept = kept[:MaxCitations]
	}

	citations := make([]Citation, 0, len(kept))
	for i, k := range kept {
		citations = append(citations, Citation{
			ID:         i + 1,
			Source:     string(k.c.Source),
			Title:      k.c.Payload.Title,
			URL:        k.c.Payload.URL,
			DocumentID: k.c.Payload.DocumentID,
			ChunkID:    k.c.Payload.ChunkID,
			Score:      k.c.Score,
			Date:       k.c.Payload.Date,
		})
	}
	return citations
}

// normalizeURL lowercases scheme and host, strips fragments, default
// ports, and trailing slashes so trivially different spellings of the
// same page collapse.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}
