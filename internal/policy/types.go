package policy

// StrategyMode selects between the two built-in answering strategies.
type StrategyMode string

const (
	// StrategySafePriority never calls the web without explicit user
	// consent. Suited to education, medical, and legal applications.
	StrategySafePriority StrategyMode = "safe_priority"

	// StrategyRealtimeKnowledge augments from the web automatically and
	// refuses outright below the auto threshold. Suited to news and
	// realtime data applications.
	StrategyRealtimeKnowledge StrategyMode = "realtime_knowledge"
)

// ThresholdPolicy is the validated, immutable per-application
// configuration of score thresholds. All thresholds are in [0,1].
type ThresholdPolicy struct {
	StrategyMode StrategyMode `json:"strategy_mode"`

	// Fixed Q&A bands: direct answer, suggestion, minimum match.
	QADirect  float64 `json:"qa_direct"`
	QASuggest float64 `json:"qa_suggest"`
	QAMin     float64 `json:"qa_min"`

	// Knowledge base bands.
	KBHigh    float64 `json:"kb_high"`
	KBContext float64 `json:"kb_context"`
	KBMin     float64 `json:"kb_min"`

	// Web search. WebAuto is only consulted in realtime_knowledge mode.
	WebTrigger float64 `json:"web_trigger"`
	WebAuto    float64 `json:"web_auto"`

	EnableFixedQA   bool `json:"enable_fixed_qa"`
	EnableVectorKB  bool `json:"enable_vector_kb"`
	EnableWebSearch bool `json:"enable_web_search"`

	// CustomNoResultResponse, when set, replaces any refusal with this
	// literal text.
	CustomNoResultResponse string `json:"custom_no_result_response,omitempty"`
}

// Overrides is a partial policy: nil fields keep the preset value.
type Overrides struct {
	QADirect  *float64 `json:"qa_direct,omitempty"`
	QASuggest *float64 `json:"qa_suggest,omitempty"`
	QAMin     *float64 `json:"qa_min,omitempty"`

	KBHigh    *float64 `json:"kb_high,omitempty"`
	KBContext *float64 `json:"kb_context,omitempty"`
	KBMin     *float64 `json:"kb_min,omitempty"`

	WebTrigger *float64 `json:"web_trigger,omitempty"`
	WebAuto    *float64 `json:"web_auto,omitempty"`

	EnableFixedQA   *bool `json:"enable_fixed_qa,omitempty"`
	EnableVectorKB  *bool `json:"enable_vector_kb,omitempty"`
	EnableWebSearch *bool `json:"enable_web_search,omitempty"`

	CustomNoResultResponse *string `json:"custom_no_result_response,omitempty"`
}
