package policy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cbitforge/forge/internal/db"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func f64(v float64) *float64 { return &v }

func TestPresetsAreValid(t *testing.T) {
	for _, mode := range []StrategyMode{StrategySafePriority, StrategyRealtimeKnowledge} {
		if err := Preset(mode).Validate(); err != nil {
			t.Errorf("preset %q should validate: %v", mode, err)
		}
	}
}

func TestPresetValues(t *testing.T) {
	p := Preset(StrategySafePriority)
	if p.QADirect != 0.92 || p.QASuggest != 0.80 || p.QAMin != 0.60 {
		t.Errorf("safe_priority qa bands: got %.2f/%.2f/%.2f", p.QADirect, p.QASuggest, p.QAMin)
	}
	if p.EnableWebSearch {
		t.Error("safe_priority should not enable web search by default")
	}

	rt := Preset(StrategyRealtimeKnowledge)
	if rt.WebAuto != 0.50 || rt.WebTrigger != 0.55 {
		t.Errorf("realtime_knowledge web bands: got auto=%.2f trigger=%.2f", rt.WebAuto, rt.WebTrigger)
	}
	if !rt.EnableWebSearch {
		t.Error("realtime_knowledge should enable web search")
	}
}

func TestPresetUnknownModeFallsBack(t *testing.T) {
	p := Preset("bogus")
	if p.StrategyMode != StrategySafePriority {
		t.Errorf("unknown mode should fall back to safe_priority, got %q", p.StrategyMode)
	}
}

func TestValidateOrderingInvariant(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ThresholdPolicy)
	}{
		{"qa_direct == qa_suggest", func(p *ThresholdPolicy) { p.QADirect = p.QASuggest }},
		{"qa_suggest < qa_min", func(p *ThresholdPolicy) { p.QASuggest = 0.10 }},
		{"kb_high < kb_context", func(p *ThresholdPolicy) { p.KBHigh = 0.40 }},
		{"score above 1", func(p *ThresholdPolicy) { p.QADirect = 1.5 }},
		{"negative score", func(p *ThresholdPolicy) { p.WebTrigger = -0.1 }},
		{"bad mode", func(p *ThresholdPolicy) { p.StrategyMode = "hybrid" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Preset(StrategySafePriority)
			tt.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("error should wrap ErrInvalidPolicy: %v", err)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	custom := "please call support"
	enabled := true
	p := Preset(StrategySafePriority).Apply(Overrides{
		QADirect:               f64(0.90),
		EnableWebSearch:        &enabled,
		CustomNoResultResponse: &custom,
	})

	if p.QADirect != 0.90 {
		t.Errorf("qa_direct override: got %.2f", p.QADirect)
	}
	if p.QASuggest != 0.80 {
		t.Errorf("untouched field changed: qa_suggest %.2f", p.QASuggest)
	}
	if !p.EnableWebSearch {
		t.Error("enable_web_search override not applied")
	}
	if p.CustomNoResultResponse != custom {
		t.Errorf("custom response: got %q", p.CustomNoResultResponse)
	}
}

func TestStoreLoadDefault(t *testing.T) {
	store := setupTestStore(t)

	p, err := store.Load(context.Background(), 42)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.StrategyMode != StrategySafePriority {
		t.Errorf("unconfigured app should get safe_priority, got %q", p.StrategyMode)
	}
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, 1, StrategyRealtimeKnowledge, Overrides{QADirect: f64(0.88)})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	p, err := store.Load(ctx, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.StrategyMode != StrategyRealtimeKnowledge {
		t.Errorf("mode: got %q", p.StrategyMode)
	}
	if p.QADirect != 0.88 {
		t.Errorf("qa_direct: got %.2f", p.QADirect)
	}
	if p.KBHigh != 0.75 {
		t.Errorf("preset field should survive: kb_high %.2f", p.KBHigh)
	}
}

func TestStoreSaveRejectsInvalid(t *testing.T) {
	store := setupTestStore(t)

	// qa_direct below qa_suggest violates the ordering invariant.
	err := store.Save(context.Background(), 1, StrategySafePriority, Overrides{QADirect: f64(0.50)})
	if err == nil {
		t.Fatal("expected Save to reject broken ordering")
	}
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("error should wrap ErrInvalidPolicy: %v", err)
	}
}

func TestRoutes_Presets(t *testing.T) {
	store := setupTestStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest("GET", "/api/policies/presets", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var presets map[StrategyMode]ThresholdPolicy
	if err := json.Unmarshal(w.Body.Bytes(), &presets); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(presets) != 2 {
		t.Errorf("expected 2 presets, got %d", len(presets))
	}
}

func TestRoutes_PutRejectsInvalid(t *testing.T) {
	store := setupTestStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	body := strings.NewReader(`{"strategy_mode":"safe_priority","overrides":{"qa_direct":0.1}}`)
	req := httptest.NewRequest("PUT", "/api/policies/7", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRoutes_PutAndGet(t *testing.T) {
	store := setupTestStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	body := strings.NewReader(`{"strategy_mode":"realtime_knowledge","overrides":{"web_auto":0.40}}`)
	req := httptest.NewRequest("PUT", "/api/policies/7", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("PUT: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/policies/7", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var p ThresholdPolicy
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.WebAuto != 0.40 {
		t.Errorf("web_auto: got %.2f", p.WebAuto)
	}
}
