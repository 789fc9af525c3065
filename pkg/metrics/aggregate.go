// Package metrics derives dashboard metrics from the interaction log and
// workflow collection, and samples the externally observed values
// (response latency, completion confidence) that cannot be derived.
package metrics

import (
	"github.com/m-mizutani/devpilot/pkg/model"
)

// Aggregate recomputes metrics from the collections. Derivable fields are
// always recomputed; sampled fields are taken from samples when present and
// otherwise carried over from prev. Empty collections yield zero values.
func Aggregate(prev model.Metrics, interactions []model.Interaction, workflows []model.WorkflowTask, samples model.Samples) model.Metrics {
	completed := 0
	for _, w := range workflows {
		if w.Status == model.WorkflowStatusCompleted {
			completed++
		}
	}

	m := model.Metrics{
		TotalInteractions:      len(interactions),
		SuccessRate:            float64(completed) / float64(max(len(workflows), 1)),
		AverageResponseTime:    prev.AverageResponseTime,
		CodeCompletionAccuracy: prev.CodeCompletionAccuracy,
		WorkflowsCompleted:     completed,
		VoiceInteractions:      CountByKind(interactions)[model.InteractionKindVoice],
	}

	if samples.ResponseTime != nil {
		m.AverageResponseTime = *samples.ResponseTime
	}
	if samples.CodeCompletionAccuracy != nil {
		m.CodeCompletionAccuracy = *samples.CodeCompletionAccuracy
	}

	return m
}

// CountByKind returns the number of interactions per kind. Every kind is
// present in the result, zero when absent.
func CountByKind(interactions []model.Interaction) map[model.InteractionKind]int {
	counts := make(map[model.InteractionKind]int, len(model.InteractionKinds))
	for _, k := range model.InteractionKinds {
		counts[k] = 0
	}
	for _, i := range interactions {
		switch i.Kind {
		case model.InteractionKindCode, model.InteractionKindText, model.InteractionKindWorkflow, model.InteractionKindVoice:
			counts[i.Kind]++
		}
	}
	return counts
}
