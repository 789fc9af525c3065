package store

import "github.com/m-mizutani/devpilot/pkg/model"

// Action is a state transition consumed by Reduce. The set of actions is
// closed to this package.
type Action interface {
	isAction()
}

// Flag names a transient session flag
type Flag int

const (
	FlagVoiceRecording Flag = iota + 1
	FlagProcessing
)

func (f Flag) String() string {
	switch f {
	case FlagVoiceRecording:
		return "voice_recording"
	case FlagProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// AppendInteraction appends a fully formed interaction to the log
type AppendInteraction struct {
	Interaction model.Interaction
}

// CreateWorkflowTask inserts a new task
type CreateWorkflowTask struct {
	Task model.WorkflowTask
}

// UpdateWorkflowTask merges Update into the task with ID. Unknown IDs are ignored.
type UpdateWorkflowTask struct {
	ID     model.WorkflowID
	Update model.WorkflowUpdate
}

// SetFlag sets one transient session flag
type SetFlag struct {
	Flag  Flag
	Value bool
}

// SetError records the last user-visible error. An empty Message clears it.
type SetError struct {
	Message string
}

// RecomputeMetrics refreshes the cached metrics with new samples
type RecomputeMetrics struct {
	Samples model.Samples
}

// SetUser records the signed-in user; nil signs out
type SetUser struct {
	User *model.User
}

// SetAuthenticated records the authorization signal
type SetAuthenticated struct {
	Authenticated bool
}

// SetView records the current view identifier
type SetView struct {
	View model.ViewID
}

func (AppendInteraction) isAction()  {}
func (CreateWorkflowTask) isAction() {}
func (UpdateWorkflowTask) isAction() {}
func (SetFlag) isAction()            {}
func (SetError) isAction()           {}
func (RecomputeMetrics) isAction()   {}
func (SetUser) isAction()            {}
func (SetAuthenticated) isAction()   {}
func (SetView) isAction()            {}
