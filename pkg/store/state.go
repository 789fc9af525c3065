package store

import (
	"slices"

	"github.com/m-mizutani/devpilot/pkg/model"
)

// State is the whole application state
type State struct {
	User          *model.User
	Authenticated bool
	View          model.ViewID

	Interactions []model.Interaction
	Workflows    []model.WorkflowTask
	Metrics      model.Metrics

	IsVoiceRecording bool
	IsProcessing     bool
	LastError        string
}

// Clone returns a deep copy of s that shares no mutable memory with it
func (s State) Clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.Interactions = slices.Clone(s.Interactions)
	out.Workflows = slices.Clone(s.Workflows)
	return out
}

// Workflow returns the task with id
func (s State) Workflow(id model.WorkflowID) (model.WorkflowTask, bool) {
	for _, w := range s.Workflows {
		if w.ID == id {
			return w, true
		}
	}
	return model.WorkflowTask{}, false
}

// RecentSuggestions returns up to n code suggestions, newest first
func (s State) RecentSuggestions(n int) []model.CodeSuggestion {
	var out []model.CodeSuggestion
	for i := len(s.Interactions) - 1; i >= 0 && len(out) < n; i-- {
		switch md := s.Interactions[i].Metadata.(type) {
		case model.CodeCompletionMetadata:
			out = append(out, md.Suggestion)
		case model.CodeGenerationMetadata:
			out = append(out, md.Suggestion)
		}
	}
	return out
}

// Busy reports whether a voice round-trip is recording or processing
func (s State) Busy() bool {
	return s.IsVoiceRecording || s.IsProcessing
}
