package fusion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cbitforge/forge/internal/confirm"
	"github.com/cbitforge/forge/internal/policy"
	"github.com/cbitforge/forge/internal/retrieval"
)

const defaultTopK = 5

// Engine evaluates the tiered decision procedure. Adapters may be nil
// when a source is never available; per-request availability comes from
// the policy's enable flags.
type Engine struct {
	qa       retrieval.FixedQAMatcher
	kb       retrieval.KBRetriever
	web      retrieval.WebSearcher
	sessions *confirm.Store
	topK     int
}

func NewEngine(qa retrieval.FixedQAMatcher, kb retrieval.KBRetriever, web retrieval.WebSearcher, sessions *confirm.Store) *Engine {
	return &Engine{qa: qa, kb: kb, web: web, sessions: sessions, topK: defaultTopK}
}

// Decide runs the full decision procedure for one request. It performs
// retrieval but never generation; the caller hands Decision.Context to
// the generator for augmented actions.
func (e *Engine) Decide(ctx context.Context, req Request, pol *policy.ThresholdPolicy) (*Decision, error) {
	start := time.Now()
	d, err := e.decide(ctx, req, pol)
	if err != nil {
		return nil, err
	}
	d.RetrievalMS = time.Since(start).Milliseconds()
	return d, nil
}

func (e *Engine) decide(ctx context.Context, req Request, pol *policy.ThresholdPolicy) (*Decision, error) {
	// A confirmation token must be consumed before anything else, so a
	// replayed follow-up fails even when it would otherwise match.
	var session *confirm.Session
	if req.ConfirmationToken != "" {
		var err error
		session, err = e.sessions.Consume(req.ConfirmationToken, req.AppID)
		if err != nil {
			return nil, err
		}
	}

	// Step 1: explicit override.
	if req.SelectedQAID != nil {
		if session != nil && !session.Offered(*req.SelectedQAID) {
			return nil, confirm.ErrSessionExpired
		}
		cand, err := e.qa.Get(ctx, req.AppID, *req.SelectedQAID)
		if err != nil {
			return nil, fmt.Errorf("resolve selected QA pair: %w", err)
		}
		return &Decision{
			Action:      ActionDirectAnswer,
			Tier:        TierA,
			Answer:      cand.Text,
			Primary:     cand,
			Confidence:  cand.Score,
			Source:      string(retrieval.SourceFixedQA),
			Explanation: "answered from the selected curated pair",
		}, nil
	}

	if isSmalltalk(req.Question) {
		return &Decision{
			Action:      ActionSmalltalk,
			Tier:        TierA,
			Source:      "smalltalk",
			Explanation: "conversational message, no retrieval needed",
		}, nil
	}

	enabled, failed := 0, 0

	// Step 2: fixed QA band.
	var qaCands []retrieval.Candidate
	if pol.EnableFixedQA && !req.SkipFixedQA && e.qa != nil {
		enabled++
		var err error
		qaCands, err = e.qa.Search(ctx, req.AppID, req.Question)
		if err != nil {
			log.Printf("[fusion] fixed QA search failed, degrading: %v", err)
			qaCands = nil
			failed++
		}
	}

	if len(qaCands) > 0 {
		s := qaCands[0].Score
		switch {
		case s >= pol.QADirect:
			top := qaCands[0]
			return &Decision{
				Action:      ActionDirectAnswer,
				Tier:        TierA,
				Answer:      top.Text,
				Primary:     &top,
				Confidence:  s,
				Source:      string(retrieval.SourceFixedQA),
				Explanation: fmt.Sprintf("curated answer matched with similarity %.2f", s),
			}, nil
		case s >= pol.QASuggest:
			return e.confirmSuggestions(req, qaCands, pol), nil
		}
		// Below qa_suggest the QA tier is not decisive, but a score at
		// or above qa_min still counts toward step 4's qualified max.
	}

	// Step 3: KB band.
	var kbCands []retrieval.Candidate
	if pol.EnableVectorKB && e.kb != nil {
		enabled++
		var err error
		kbCands, err = e.kb.Search(ctx, req.AppID, req.Question, e.topK)
		if err != nil {
			log.Printf("[fusion] KB retrieval failed, degrading: %v", err)
			kbCands = nil
			failed++
		}
	}

	var d *Decision
	k := 0.0
	if len(kbCands) > 0 {
		k = kbCands[0].Score
	}
	switch {
	case k >= pol.KBHigh:
		d = &Decision{
			Action:      ActionContextAugmented,
			Tier:        TierA,
			Context:     retrieval.Top(kbCands, e.topK),
			Confidence:  k,
			Source:      string(retrieval.SourceKB),
			Explanation: fmt.Sprintf("knowledge base matched with high confidence %.2f", k),
		}
	case k >= pol.KBContext:
		d = &Decision{
			Action:      ActionContextAugmented,
			Tier:        TierB,
			Context:     retrieval.Top(kbCands, e.topK),
			Confidence:  k,
			Source:      string(retrieval.SourceKB),
			Explanation: fmt.Sprintf("knowledge base matched with moderate confidence %.2f", k),
		}
	default:
		k = 0
	}

	// Step 4: web tier.
	m := k
	if len(qaCands) > 0 && qaCands[0].Score >= pol.QAMin && qaCands[0].Score > m {
		m = qaCands[0].Score
	}

	if pol.EnableWebSearch && e.web != nil {
		switch {
		case req.ForceWebSearch:
			return e.webAugment(ctx, req, d, m, pol, &failed, &enabled)

		case pol.StrategyMode == policy.StrategySafePriority:
			if m < pol.WebTrigger {
				if d != nil {
					// Keep the grounded decision, surface the opt-in.
					d.RequiresWebAuth = true
					return d, nil
				}
				return &Decision{
					Action:          ActionRequireAuthorization,
					Tier:            TierC,
					Context:         lowConfidenceContext(qaCands, kbCands, pol),
					RequiresWebAuth: true,
					Confidence:      m,
					Source:          "none",
					Explanation:     "no source reached the confidence floor; web search needs authorization",
				}, nil
			}
			if d != nil {
				d.WebSearchOption = m < pol.KBHigh
				return d, nil
			}

		case pol.StrategyMode == policy.StrategyRealtimeKnowledge:
			if m < pol.WebTrigger {
				if m >= pol.WebAuto {
					return e.webAugment(ctx, req, d, m, pol, &failed, &enabled)
				}
				d = nil // below web_auto nothing is grounded enough
			} else if d != nil {
				return d, nil
			}
		}
	}

	if d != nil {
		return d, nil
	}

	if enabled > 0 && failed == enabled {
		if pol.CustomNoResultResponse != "" {
			return customRefusal(pol), nil
		}
		return nil, ErrAllSourcesFailed
	}

	// Step 5: nothing qualified.
	if pol.CustomNoResultResponse != "" {
		return customRefusal(pol), nil
	}
	return &Decision{
		Action:      ActionRefuse,
		Tier:        TierC,
		Confidence:  m,
		Source:      "none",
		Explanation: "no source reached the confidence floor",
	}, nil
}

// confirmSuggestions builds the "did you mean" decision and mints its
// session. Suggestions keep every candidate at or above qa_min, capped.
func (e *Engine) confirmSuggestions(req Request, qaCands []retrieval.Candidate, pol *policy.ThresholdPolicy) *Decision {
	var suggestions []Suggestion
	var qaIDs []int64
	for _, c := range qaCands {
		if c.Score < pol.QAMin {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			QAID:       c.ID,
			Question:   c.Payload.Question,
			Similarity: c.Score,
		})
		qaIDs = append(qaIDs, c.ID)
		if len(suggestions) == maxSuggestions {
			break
		}
	}

	sess := e.sessions.Create(req.AppID, req.Question, qaIDs)
	return &Decision{
		Action:            ActionConfirmSuggestions,
		Tier:              TierA,
		Suggestions:       suggestions,
		ConfirmationToken: sess.Token,
		Confidence:        qaCands[0].Score,
		Source:            string(retrieval.SourceFixedQA),
		Explanation:       fmt.Sprintf("close curated matches found (top similarity %.2f), confirmation needed", qaCands[0].Score),
	}
}

// webAugment invokes the web adapter, merges its candidates into the
// retained context, and recomputes the tier from the merged max score.
func (e *Engine) webAugment(ctx context.Context, req Request, prior *Decision, m float64, pol *policy.ThresholdPolicy, failed, enabled *int) (*Decision, error) {
	*enabled++
	webCands, err := e.web.Search(ctx, req.Question)
	if err != nil {
		log.Printf("[fusion] web search failed, degrading: %v", err)
		webCands = nil
		*failed++
	}

	var merged []retrieval.Candidate
	if prior != nil {
		merged = append(merged, prior.Context...)
	}
	merged = append(merged, webCands...)
	retrieval.SortCandidates(merged)

	if len(merged) == 0 {
		if *enabled > 0 && *failed == *enabled {
			if pol.CustomNoResultResponse != "" {
				return customRefusal(pol), nil
			}
			return nil, ErrAllSourcesFailed
		}
		if pol.CustomNoResultResponse != "" {
			return customRefusal(pol), nil
		}
		return &Decision{
			Action:      ActionRefuse,
			Tier:        TierC,
			Source:      "none",
			Explanation: "web search returned nothing usable",
		}, nil
	}

	mergedMax := retrieval.MaxScore(merged)
	if mergedMax < m {
		mergedMax = m
	}
	tier := TierC
	switch {
	case mergedMax >= pol.KBHigh:
		tier = TierA
	case mergedMax >= pol.KBContext:
		tier = TierB
	}

	return &Decision{
		Action:      ActionAutoWebAugment,
		Tier:        tier,
		Context:     retrieval.Top(merged, e.topK),
		Confidence:  mergedMax,
		Source:      string(retrieval.SourceWeb),
		Explanation: fmt.Sprintf("augmented with live web results (merged confidence %.2f)", mergedMax),
	}, nil
}

// lowConfidenceContext gathers sub-band candidates that can still back
// a best-effort answer alongside an authorization prompt.
func lowConfidenceContext(qaCands, kbCands []retrieval.Candidate, pol *policy.ThresholdPolicy) []retrieval.Candidate {
	var out []retrieval.Candidate
	for _, c := range qaCands {
		if c.Score >= pol.QAMin {
			out = append(out, c)
		}
	}
	for _, c := range kbCands {
		if c.Score >= pol.KBMin {
			out = append(out, c)
		}
	}
	retrieval.SortCandidates(out)
	return retrieval.Top(out, defaultTopK)
}

func customRefusal(pol *policy.ThresholdPolicy) *Decision {
	return &Decision{
		Action:      ActionCustomRefusal,
		Tier:        TierC,
		Answer:      pol.CustomNoResultResponse,
		Source:      "none",
		Explanation: "no source qualified; configured fallback response returned",
	}
}
