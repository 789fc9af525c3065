package model

import "time"

// Metrics is a cached projection of the interaction and workflow collections
// plus externally sampled values. It is never authoritative.
type Metrics struct {
	TotalInteractions      int           `json:"total_interactions"`
	SuccessRate            float64       `json:"success_rate"`
	AverageResponseTime    time.Duration `json:"average_response_time"`
	CodeCompletionAccuracy float64       `json:"code_completion_accuracy"`
	WorkflowsCompleted     int           `json:"workflows_completed"`
	VoiceInteractions      int           `json:"voice_interactions"`
}

// Samples carries values observed outside the store. A nil field means no
// new observation is available and the cached value is kept.
type Samples struct {
	ResponseTime           *time.Duration
	CodeCompletionAccuracy *float64
}
