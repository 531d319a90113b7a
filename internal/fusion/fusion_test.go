package fusion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cbitforge/forge/internal/confirm"
	"github.com/cbitforge/forge/internal/policy"
	"github.com/cbitforge/forge/internal/retrieval"
)

type stubQA struct {
	cands []retrieval.Candidate
	pairs map[int64]*retrieval.Candidate
	err   error
	calls int
}

func (s *stubQA) Search(_ context.Context, _ int64, _ string) ([]retrieval.Candidate, error) {
	s.calls++
	return s.cands, s.err
}

func (s *stubQA) Get(_ context.Context, _ int64, qaID int64) (*retrieval.Candidate, error) {
	if p, ok := s.pairs[qaID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("pair %d not found", qaID)
}

type stubKB struct {
	cands []retrieval.Candidate
	err   error
	calls int
}

func (s *stubKB) Search(_ context.Context, _ int64, _ string, _ int) ([]retrieval.Candidate, error) {
	s.calls++
	return s.cands, s.err
}

type stubWeb struct {
	cands []retrieval.Candidate
	err   error
	calls int
}

func (s *stubWeb) Search(_ context.Context, _ string) ([]retrieval.Candidate, error) {
	s.calls++
	return s.cands, s.err
}

func qaCand(id int64, question string, score float64) retrieval.Candidate {
	return retrieval.Candidate{
		Source:  retrieval.SourceFixedQA,
		ID:      id,
		Text:    "answer to " + question,
		Score:   score,
		Payload: retrieval.Payload{Question: question, Answer: "answer to " + question},
	}
}

func kbCand(id int64, score float64) retrieval.Candidate {
	return retrieval.Candidate{
		Source:  retrieval.SourceKB,
		ID:      id,
		Text:    "chunk",
		Score:   score,
		Payload: retrieval.Payload{KBName: "docs", DocumentID: fmt.Sprintf("d%d", id), ChunkID: "0"},
	}
}

func webCand(id int64, score float64) retrieval.Candidate {
	return retrieval.Candidate{
		Source:  retrieval.SourceWeb,
		ID:      id,
		Text:    "web text",
		Score:   score,
		Payload: retrieval.Payload{Title: "page", URL: fmt.Sprintf("https://example.com/%d", id)},
	}
}

func newTestEngine(qa *stubQA, kb *stubKB, web *stubWeb) *Engine {
	return NewEngine(qa, kb, web, confirm.NewStore())
}

func safePolicy() *policy.ThresholdPolicy {
	p := policy.Preset(policy.StrategySafePriority)
	return &p
}

func realtimePolicy() *policy.ThresholdPolicy {
	p := policy.Preset(policy.StrategyRealtimeKnowledge)
	return &p
}

func TestFixedQADirectAnswer(t *testing.T) {
	qa := &stubQA{cands: []retrieval.Candidate{qaCand(1, "reset password", 0.95)}}
	e := newTestEngine(qa, &stubKB{}, &stubWeb{})

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "reset password"}, safePolicy())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionDirectAnswer || d.Tier != TierA {
		t.Errorf("action/tier = %v/%v", d.Action, d.Tier)
	}
	if d.Answer != "answer to reset password" {
		t.Errorf("answer = %q", d.Answer)
	}
}

func TestFixedQASuggestBand(t *testing.T) {
	// Worked example: qa_direct=0.90, qa_suggest=0.75, qa_min=0.50,
	// top score 0.82 lands in the suggestion band.
	pol := safePolicy()
	pol.QADirect, pol.QASuggest, pol.QAMin = 0.90, 0.75, 0.50

	qa := &stubQA{cands: []retrieval.Candidate{
		qaCand(1, "how to reset password", 0.82),
		qaCand(2, "how to reset username", 0.55),
		qaCand(3, "unrelated", 0.30),
	}}
	e := newTestEngine(qa, &stubKB{}, &stubWeb{})

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "reset pw?"}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionConfirmSuggestions {
		t.Fatalf("action = %v", d.Action)
	}
	if d.ConfirmationToken == "" {
		t.Error("expected a confirmation token")
	}
	if len(d.Suggestions) != 2 {
		t.Fatalf("suggestions below qa_min must be dropped, got %d", len(d.Suggestions))
	}
	if d.Suggestions[0].Similarity != 0.82 {
		t.Errorf("top suggestion similarity = %v", d.Suggestions[0].Similarity)
	}
}

func TestFixedQASuggestionsCappedAtFive(t *testing.T) {
	pol := safePolicy()
	var cands []retrieval.Candidate
	for i := int64(1); i <= 8; i++ {
		cands = append(cands, qaCand(i, fmt.Sprintf("q%d", i), 0.85-float64(i)*0.001))
	}
	qa := &stubQA{cands: cands}
	e := newTestEngine(qa, &stubKB{}, &stubWeb{})

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionConfirmSuggestions {
		t.Fatalf("action = %v", d.Action)
	}
	if len(d.Suggestions) != 5 {
		t.Errorf("suggestions = %d, want 5", len(d.Suggestions))
	}
}

func TestFixedQABelowSuggestIsIgnored(t *testing.T) {
	qa := &stubQA{cands: []retrieval.Candidate{qaCand(1, "q", 0.70)}}
	kb := &stubKB{cands: []retrieval.Candidate{kbCand(1, 0.90)}}
	e := newTestEngine(qa, kb, &stubWeb{})

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, safePolicy())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionContextAugmented || d.Tier != TierA {
		t.Errorf("sub-suggest QA should fall through to KB, got %v/%v", d.Action, d.Tier)
	}
}

func TestSkipFixedQA(t *testing.T) {
	qa := &stubQA{cands: []retrieval.Candidate{qaCand(1, "q", 0.99)}}
	kb := &stubKB{cands: []retrieval.Candidate{kbCand(1, 0.90)}}
	e := newTestEngine(qa, kb, &stubWeb{})

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q", SkipFixedQA: true}, safePolicy())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if qa.calls != 0 {
		t.Errorf("QA adapter called %d times despite skip", qa.calls)
	}
	if d.Action != ActionContextAugmented {
		t.Errorf("action = %v", d.Action)
	}
}

func TestSelectedQAIDOverride(t *testing.T) {
	cand := qaCand(7, "billing", 1.0)
	qa := &stubQA{pairs: map[int64]*retrieval.Candidate{7: &cand}}
	e := newTestEngine(qa, &stubKB{}, &stubWeb{})

	id := int64(7)
	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "anything", SelectedQAID: &id}, safePolicy())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionDirectAnswer || d.Tier != TierA {
		t.Errorf("action/tier = %v/%v", d.Action, d.Tier)
	}
	if qa.calls != 0 {
		t.Error("explicit selection must bypass scoring")
	}
}

func TestConfirmationRoundTrip(t *testing.T) {
	cand1 := qaCand(1, "reset password", 0.82)
	cand2 := qaCand(2, "reset username", 0.78)
	qa := &stubQA{
		cands: []retrieval.Candidate{cand1, cand2},
		pairs: map[int64]*retrieval.Candidate{1: &cand1, 2: &cand2},
	}
	e := newTestEngine(qa, &stubKB{}, &stubWeb{})
	ctx := context.Background()

	first, err := e.Decide(ctx, Request{AppID: 1, Question: "reset pw"}, safePolicy())
	if err != nil {
		t.Fatalf("first Decide: %v", err)
	}
	if first.Action != ActionConfirmSuggestions {
		t.Fatalf("action = %v", first.Action)
	}

	id := int64(2)
	second, err := e.Decide(ctx, Request{
		AppID:             1,
		Question:          "reset pw",
		SelectedQAID:      &id,
		ConfirmationToken: first.ConfirmationToken,
	}, safePolicy())
	if err != nil {
		t.Fatalf("resolution Decide: %v", err)
	}
	if second.Answer != cand2.Text {
		t.Errorf("resolution must return the stored answer verbatim, got %q", second.Answer)
	}

	// Replaying the same token fails.
	_, err = e.Decide(ctx, Request{
		AppID:             1,
		Question:          "reset pw",
		SelectedQAID:      &id,
		ConfirmationToken: first.ConfirmationToken,
	}, safePolicy())
	if !errors.Is(err, confirm.ErrSessionExpired) {
		t.Errorf("replay should return ErrSessionExpired, got %v", err)
	}
}

func TestConfirmationRejectsUnofferedID(t *testing.T) {
	cand := qaCand(1, "q", 0.80)
	qa := &stubQA{
		cands: []retrieval.Candidate{cand},
		pairs: map[int64]*retrieval.Candidate{1: &cand, 99: &cand},
	}
	e := newTestEngine(qa, &stubKB{}, &stubWeb{})
	ctx := context.Background()

	first, err := e.Decide(ctx, Request{AppID: 1, Question: "q"}, safePolicy())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	id := int64(99)
	_, err = e.Decide(ctx, Request{AppID: 1, Question: "q", SelectedQAID: &id, ConfirmationToken: first.ConfirmationToken}, safePolicy())
	if !errors.Is(err, confirm.ErrSessionExpired) {
		t.Errorf("unoffered id should be rejected, got %v", err)
	}
}

func TestKBBands(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		wantAction Action
		wantTier   Tier
	}{
		{"high band", 0.92, ActionContextAugmented, TierA},
		{"context band", 0.75, ActionContextAugmented, TierB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := &stubKB{cands: []retrieval.Candidate{kbCand(1, tt.score)}}
			e := newTestEngine(&stubQA{}, kb, &stubWeb{})

			d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, safePolicy())
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.Action != tt.wantAction || d.Tier != tt.wantTier {
				t.Errorf("got %v/%v, want %v/%v", d.Action, d.Tier, tt.wantAction, tt.wantTier)
			}
			if len(d.Context) == 0 {
				t.Error("expected KB context")
			}
		})
	}
}

func TestSafePriorityNeverCallsWebWithoutConsent(t *testing.T) {
	pol := safePolicy()
	pol.EnableWebSearch = true

	web := &stubWeb{cands: []retrieval.Candidate{webCand(1, 0.90)}}
	e := newTestEngine(&stubQA{}, &stubKB{}, web)

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if web.calls != 0 {
		t.Errorf("web adapter called %d times, want 0", web.calls)
	}
	if d.Action != ActionRequireAuthorization {
		t.Errorf("action = %v", d.Action)
	}
	if !d.RequiresWebAuth {
		t.Error("requires_web_search_auth must be set")
	}
	if d.Tier != TierC {
		t.Errorf("tier = %v", d.Tier)
	}
}

func TestSafePriorityCompositeTierBWithAuthFlag(t *testing.T) {
	// Worked example: kb_high=0.85, kb_context=0.60, web_trigger=0.70,
	// KB top 0.62 gives tier B and the auth flag simultaneously.
	pol := safePolicy()
	pol.KBHigh, pol.KBContext, pol.WebTrigger = 0.85, 0.60, 0.70
	pol.EnableWebSearch = true

	kb := &stubKB{cands: []retrieval.Candidate{kbCand(1, 0.62)}}
	web := &stubWeb{}
	e := newTestEngine(&stubQA{}, kb, web)

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionContextAugmented || d.Tier != TierB {
		t.Errorf("action/tier = %v/%v", d.Action, d.Tier)
	}
	if !d.RequiresWebAuth {
		t.Error("composite response must still carry the auth flag")
	}
	if web.calls != 0 {
		t.Errorf("web adapter called %d times, want 0", web.calls)
	}
}

func TestSafePriorityWebOptionAffordance(t *testing.T) {
	pol := safePolicy()
	pol.KBHigh, pol.KBContext, pol.WebTrigger = 0.85, 0.60, 0.70
	pol.EnableWebSearch = true

	kb := &stubKB{cands: []retrieval.Candidate{kbCand(1, 0.75)}}
	e := newTestEngine(&stubQA{}, kb, &stubWeb{})

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionContextAugmented || d.Tier != TierB {
		t.Errorf("action/tier = %v/%v", d.Action, d.Tier)
	}
	if d.RequiresWebAuth {
		t.Error("above web_trigger no authorization is needed")
	}
	if !d.WebSearchOption {
		t.Error("web-search affordance should be offered in [web_trigger, kb_high)")
	}
}

func TestRealtimeAutoWebAugment(t *testing.T) {
	// Worked example: web_auto=0.50, web_trigger=0.70, combined max 0.55.
	pol := realtimePolicy()
	pol.WebAuto, pol.WebTrigger = 0.50, 0.70

	kb := &stubKB{cands: []retrieval.Candidate{kbCand(1, 0.55)}}
	web := &stubWeb{cands: []retrieval.Candidate{webCand(1, 0.65)}}
	e := newTestEngine(&stubQA{}, kb, web)

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if web.calls != 1 {
		t.Errorf("web adapter called %d times, want exactly 1", web.calls)
	}
	if d.Action != ActionAutoWebAugment {
		t.Errorf("action = %v", d.Action)
	}
	if len(d.Suggestions) != 0 || d.ConfirmationToken != "" {
		t.Error("auto augment must not prompt the user")
	}
	if d.Tier != TierB {
		t.Errorf("tier = %v", d.Tier)
	}
}

func TestRealtimeRefusesBelowWebAuto(t *testing.T) {
	pol := realtimePolicy()

	kb := &stubKB{cands: []retrieval.Candidate{kbCand(1, 0.20)}}
	web := &stubWeb{}
	e := newTestEngine(&stubQA{}, kb, web)

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionRefuse || d.Tier != TierC {
		t.Errorf("action/tier = %v/%v", d.Action, d.Tier)
	}
	if web.calls != 0 {
		t.Errorf("web adapter called %d times, want 0", web.calls)
	}
}

func TestForceWebSearch(t *testing.T) {
	pol := safePolicy()
	pol.EnableWebSearch = true

	web := &stubWeb{cands: []retrieval.Candidate{webCand(1, 0.95)}}
	e := newTestEngine(&stubQA{}, &stubKB{}, web)

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q", ForceWebSearch: true}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if web.calls != 1 {
		t.Errorf("web adapter called %d times, want 1", web.calls)
	}
	if d.Action != ActionAutoWebAugment {
		t.Errorf("action = %v", d.Action)
	}
	// Merged max 0.95 >= kb_high 0.88 recomputes tier A.
	if d.Tier != TierA {
		t.Errorf("tier = %v", d.Tier)
	}
}

func TestAdapterFailureDegrades(t *testing.T) {
	qa := &stubQA{err: errors.New("embedding service down")}
	kb := &stubKB{cands: []retrieval.Candidate{kbCand(1, 0.90)}}
	e := newTestEngine(qa, kb, &stubWeb{})

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, safePolicy())
	if err != nil {
		t.Fatalf("Decide should degrade, got %v", err)
	}
	if d.Action != ActionContextAugmented {
		t.Errorf("action = %v", d.Action)
	}
}

func TestAllSourcesFailedIsAnError(t *testing.T) {
	qa := &stubQA{err: errors.New("down")}
	kb := &stubKB{err: errors.New("down")}
	e := newTestEngine(qa, kb, &stubWeb{})

	_, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, safePolicy())
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Errorf("expected ErrAllSourcesFailed, got %v", err)
	}
}

func TestAllSourcesFailedWithCustomResponse(t *testing.T) {
	pol := safePolicy()
	pol.CustomNoResultResponse = "Please contact support."

	qa := &stubQA{err: errors.New("down")}
	kb := &stubKB{err: errors.New("down")}
	e := newTestEngine(qa, kb, &stubWeb{})

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionCustomRefusal || d.Answer != "Please contact support." {
		t.Errorf("got %v / %q", d.Action, d.Answer)
	}
}

func TestCustomRefusalReplacesTierC(t *testing.T) {
	pol := realtimePolicy()
	pol.CustomNoResultResponse = "No luck, sorry."

	kb := &stubKB{cands: []retrieval.Candidate{kbCand(1, 0.10)}}
	e := newTestEngine(&stubQA{}, kb, &stubWeb{})

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionCustomRefusal {
		t.Errorf("action = %v", d.Action)
	}
	if d.Answer != "No luck, sorry." {
		t.Errorf("answer = %q", d.Answer)
	}
}

func TestSmalltalkBypassesRetrieval(t *testing.T) {
	qa := &stubQA{}
	kb := &stubKB{}
	e := newTestEngine(qa, kb, &stubWeb{})

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "hello!"}, safePolicy())
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Action != ActionSmalltalk {
		t.Errorf("action = %v", d.Action)
	}
	if qa.calls != 0 || kb.calls != 0 {
		t.Error("smalltalk must not hit retrieval adapters")
	}
}

func TestIsSmalltalk(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"hi", true},
		{"Hello!", true},
		{"thanks", true},
		{"hi there", true},
		{"how are you?", true},
		{"hi, how do I configure SSO for my organization", false},
		{"what is the refund policy", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isSmalltalk(tt.in); got != tt.want {
			t.Errorf("isSmalltalk(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWebDisabledFallsToRefuse(t *testing.T) {
	pol := safePolicy() // web off by default
	web := &stubWeb{cands: []retrieval.Candidate{webCand(1, 0.99)}}
	e := newTestEngine(&stubQA{}, &stubKB{}, web)

	d, err := e.Decide(context.Background(), Request{AppID: 1, Question: "q"}, pol)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if web.calls != 0 {
		t.Errorf("web adapter called %d times with web disabled", web.calls)
	}
	if d.Action != ActionRefuse || d.Tier != TierC {
		t.Errorf("action/tier = %v/%v", d.Action, d.Tier)
	}
}
