package policy

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy wraps every validation failure so callers can treat
// a broken configuration as a load-time rejection.
var ErrInvalidPolicy = errors.New("invalid threshold policy")

// Preset returns the full default value set for the given strategy
// mode. Unknown modes fall back to safe_priority. Values mirror the
// two shipped strategy presets.
func Preset(mode StrategyMode) ThresholdPolicy {
	switch mode {
	case StrategyRealtimeKnowledge:
		return ThresholdPolicy{
			StrategyMode: StrategyRealtimeKnowledge,
			QADirect:     0.85,
			QASuggest:    0.70,
			QAMin:        0.45,
			KBHigh:       0.75,
			KBContext:    0.55,
			KBMin:        0.35,
			WebTrigger:   0.55,
			WebAuto:      0.50,

			EnableFixedQA:   true,
			EnableVectorKB:  true,
			EnableWebSearch: true,
		}
	default:
		return ThresholdPolicy{
			StrategyMode: StrategySafePriority,
			QADirect:     0.92,
			QASuggest:    0.80,
			QAMin:        0.60,
			KBHigh:       0.88,
			KBContext:    0.72,
			KBMin:        0.50,
			WebTrigger:   0.72,
			WebAuto:      0.50,

			EnableFixedQA:   true,
			EnableVectorKB:  true,
			EnableWebSearch: false,
		}
	}
}

// Apply overlays non-nil override fields onto p and returns the result.
// The result is not validated; callers must Validate before use.
func (p ThresholdPolicy) Apply(o Overrides) ThresholdPolicy {
	if o.QADirect != nil {
		p.QADirect = *o.QADirect
	}
	if o.QASuggest != nil {
		p.QASuggest = *o.QASuggest
	}
	if o.QAMin != nil {
		p.QAMin = *o.QAMin
	}
	if o.KBHigh != nil {
		p.KBHigh = *o.KBHigh
	}
	if o.KBContext != nil {
		p.KBContext = *o.KBContext
	}
	if o.KBMin != nil {
		p.KBMin = *o.KBMin
	}
	if o.WebTrigger != nil {
		p.WebTrigger = *o.WebTrigger
	}
	if o.WebAuto != nil {
		p.WebAuto = *o.WebAuto
	}
	if o.EnableFixedQA != nil {
		p.EnableFixedQA = *o.EnableFixedQA
	}
	if o.EnableVectorKB != nil {
		p.EnableVectorKB = *o.EnableVectorKB
	}
	if o.EnableWebSearch != nil {
		p.EnableWebSearch = *o.EnableWebSearch
	}
	if o.CustomNoResultResponse != nil {
		p.CustomNoResultResponse = *o.CustomNoResultResponse
	}
	return p
}

// Validate checks threshold ranges and ordering invariants. Violations
// reject the policy outright; thresholds are never silently clamped.
func (p ThresholdPolicy) Validate() error {
	if p.StrategyMode != StrategySafePriority && p.StrategyMode != StrategyRealtimeKnowledge {
		return fmt.Errorf("%w: unknown strategy_mode %q", ErrInvalidPolicy, p.StrategyMode)
	}

	fields := []struct {
		name  string
		value float64
	}{
		{"qa_direct", p.QADirect},
		{"qa_suggest", p.QASuggest},
		{"qa_min", p.QAMin},
		{"kb_high", p.KBHigh},
		{"kb_context", p.KBContext},
		{"kb_min", p.KBMin},
		{"web_trigger", p.WebTrigger},
		{"web_auto", p.WebAuto},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("%w: %s %.4f out of range [0,1]", ErrInvalidPolicy, f.name, f.value)
		}
	}

	if !(p.QADirect > p.QASuggest && p.QASuggest > p.QAMin) {
		return fmt.Errorf("%w: require qa_direct > qa_suggest > qa_min, got %.2f/%.2f/%.2f",
			ErrInvalidPolicy, p.QADirect, p.QASuggest, p.QAMin)
	}
	if !(p.KBHigh > p.KBContext && p.KBContext > p.KBMin) {
		return fmt.Errorf("%w: require kb_high > kb_context > kb_min, got %.2f/%.2f/%.2f",
			ErrInvalidPolicy, p.KBHigh, p.KBContext, p.KBMin)
	}

	return nil
}
