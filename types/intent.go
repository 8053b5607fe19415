package types

import "time"

// IntentAlternative 候选意图及其置信度.
type IntentAlternative struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// IntentClassification 意图识别结果. 每次识别调用产生一个实例，
// 由匹配器立即消费，核心不做持久化.
type IntentClassification struct {
	InputText      string  `json:"input_text"`
	DetectedIntent string  `json:"detected_intent"`
	Confidence     float64 `json:"confidence"`

	AlternativeIntents []IntentAlternative `json:"alternative_intents,omitempty"`

	Entities       map[string][]string `json:"entities,omitempty"`
	ContextFactors map[string]any      `json:"context_factors,omitempty"`

	ProcessingTime time.Duration `json:"processing_time"`
	CreatedAt      time.Time     `json:"created_at"`
}
