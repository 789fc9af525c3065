package store

import (
	"slices"

	"github.com/m-mizutani/devpilot/pkg/metrics"
	"github.com/m-mizutani/devpilot/pkg/model"
)

// Reduce returns the state produced by applying a to s. It never mutates s
// and has no side effects. Unknown actions leave the state unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case AppendInteraction:
		s.Interactions = append(slices.Clip(s.Interactions), a.Interaction)
		s.Metrics = metrics.Aggregate(s.Metrics, s.Interactions, s.Workflows, model.Samples{})

	case CreateWorkflowTask:
		s.Workflows = append(slices.Clip(s.Workflows), a.Task)
		s.Metrics = metrics.Aggregate(s.Metrics, s.Interactions, s.Workflows, model.Samples{})

	case UpdateWorkflowTask:
		idx := slices.IndexFunc(s.Workflows, func(w model.WorkflowTask) bool { return w.ID == a.ID })
		if idx < 0 {
			return s
		}
		s.Workflows = slices.Clone(s.Workflows)
		s.Workflows[idx] = a.Update.Apply(s.Workflows[idx])
		s.Metrics = metrics.Aggregate(s.Metrics, s.Interactions, s.Workflows, model.Samples{})

	case SetFlag:
		switch a.Flag {
		case FlagVoiceRecording:
			s.IsVoiceRecording = a.Value
		case FlagProcessing:
			s.IsProcessing = a.Value
		}

	case SetError:
		s.LastError = a.Message

	case RecomputeMetrics:
		s.Metrics = metrics.Aggregate(s.Metrics, s.Interactions, s.Workflows, a.Samples)

	case SetUser:
		s.User = a.User

	case SetAuthenticated:
		s.Authenticated = a.Authenticated

	case SetView:
		s.View = a.View
	}

	return s
}
