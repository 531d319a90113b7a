// Package fusion implements the confidence-tiered decision engine that
// merges fixed QA, vector knowledge base, and web search results into a
// single answer strategy per request.
package fusion

import (
	"errors"

	"github.com/cbitforge/forge/internal/retrieval"
)

// ErrAllSourcesFailed is returned when every enabled source errored and
// no grounded answer is possible.
var ErrAllSourcesFailed = errors.New("all enabled retrieval sources failed")

// Action is the strategy chosen for a request.
type Action string

const (
	ActionDirectAnswer         Action = "direct_answer"
	ActionConfirmSuggestions   Action = "confirm_suggestions"
	ActionContextAugmented     Action = "context_augmented"
	ActionAutoWebAugment       Action = "auto_web_augment"
	ActionRequireAuthorization Action = "require_authorization"
	ActionRefuse               Action = "refuse"
	ActionCustomRefusal        Action = "custom_refusal"
	ActionSmalltalk            Action = "smalltalk"
)

// Tier is the confidence band of a decision.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// maxSuggestions caps the "did you mean" list.
const maxSuggestions = 5

// Request is one fusion invocation.
type Request struct {
	AppID             int64
	Question          string
	SkipFixedQA       bool
	SelectedQAID      *int64
	ConfirmationToken string
	ForceWebSearch    bool
}

// Suggestion is one "did you mean" entry.
type Suggestion struct {
	QAID       int64   `json:"qa_id"`
	Question   string  `json:"question"`
	Similarity float64 `json:"similarity"`
}

// Decision is the full outcome of fusion for one request. Answer is set
// only for actions that bypass generation; augmented actions carry the
// context the generator should receive instead.
type Decision struct {
	Action            Action
	Tier              Tier
	Answer            string
	Primary           *retrieval.Candidate
	Context           []retrieval.Candidate
	Suggestions       []Suggestion
	ConfirmationToken string
	RequiresWebAuth   bool
	WebSearchOption   bool
	Confidence        float64
	Source            string
	Explanation       string
	RetrievalMS       int64
}

// NeedsGeneration reports whether the composer must invoke the LLM.
func (d *Decision) NeedsGeneration() bool {
	switch d.Action {
	case ActionContextAugmented, ActionAutoWebAugment, ActionRequireAuthorization, ActionSmalltalk:
		return true
	}
	return false
}
