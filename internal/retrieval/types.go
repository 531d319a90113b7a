package retrieval

import "time"

// Source identifies which knowledge source produced a candidate.
type Source string

const (
	SourceFixedQA Source = "fixed_qa"
	SourceKB      Source = "kb"
	SourceWeb     Source = "web"
)

// priority orders sources for tie-breaking: FixedQA beats KB beats Web.
func (s Source) priority() int {
	switch s {
	case SourceFixedQA:
		return 0
	case SourceKB:
		return 1
	case SourceWeb:
		return 2
	default:
		return 3
	}
}

// Candidate is a single scored answer candidate from one source.
// Candidates are immutable once produced by an adapter.
type Candidate struct {
	Source    Source     `json:"source"`
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	Score     float64    `json:"score"`
	Payload   Payload    `json:"payload"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Payload carries source-specific attribution fields.
type Payload struct {
	// FixedQA
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`

	// KB
	KBName     string `json:"kb_name,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	ChunkID    string `json:"chunk_id,omitempty"`

	// Web
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Date  string `json:"date,omitempty"`
}
