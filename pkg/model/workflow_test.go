package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestWorkflowStatusTransition(t *testing.T) {
	testCases := []struct {
		from, to model.WorkflowStatus
		allowed  bool
	}{
		{model.WorkflowStatusPending, model.WorkflowStatusRunning, true},
		{model.WorkflowStatusPending, model.WorkflowStatusCompleted, false},
		{model.WorkflowStatusPending, model.WorkflowStatusFailed, false},
		{model.WorkflowStatusRunning, model.WorkflowStatusPending, true},
		{model.WorkflowStatusRunning, model.WorkflowStatusCompleted, true},
		{model.WorkflowStatusRunning, model.WorkflowStatusFailed, true},
		{model.WorkflowStatusRunning, model.WorkflowStatusRunning, false},
		{model.WorkflowStatusCompleted, model.WorkflowStatusRunning, false},
		{model.WorkflowStatusCompleted, model.WorkflowStatusPending, false},
		{model.WorkflowStatusFailed, model.WorkflowStatusRunning, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			gt.Equal(t, tc.from.CanTransitionTo(tc.to), tc.allowed)
		})
	}
}

func TestWorkflowStatusTerminal(t *testing.T) {
	gt.True(t, model.WorkflowStatusCompleted.Terminal())
	gt.True(t, model.WorkflowStatusFailed.Terminal())
	gt.False(t, model.WorkflowStatusPending.Terminal())
	gt.False(t, model.WorkflowStatusRunning.Terminal())
}

func TestWorkflowStatusValidate(t *testing.T) {
	gt.NoError(t, model.WorkflowStatusRunning.Validate())
	gt.True(t, errors.Is(model.WorkflowStatus("archived").Validate(), model.ErrInvalidWorkflowStatus))
}

func TestWorkflowUpdateApply(t *testing.T) {
	base := model.WorkflowTask{
		ID:       "w1",
		Title:    "Build",
		Status:   model.WorkflowStatusRunning,
		Progress: 40,
	}

	t.Run("progress only keeps other fields", func(t *testing.T) {
		got := model.ProgressUpdate(60).Apply(base)
		gt.Equal(t, got.Progress, 60.0)
		gt.Equal(t, got.Status, model.WorkflowStatusRunning)
		gt.Equal(t, got.Title, "Build")
	})

	t.Run("completed forces full progress", func(t *testing.T) {
		got := model.StatusUpdate(model.WorkflowStatusCompleted).WithResult("done").Apply(base)
		gt.Equal(t, got.Progress, model.ProgressMax)
		gt.Equal(t, got.Result, "done")
	})

	t.Run("pending forces zero progress", func(t *testing.T) {
		got := model.StatusUpdate(model.WorkflowStatusPending).WithProgress(80).Apply(base)
		gt.Equal(t, got.Progress, model.ProgressMin)
	})

	t.Run("progress is clamped", func(t *testing.T) {
		gt.Equal(t, model.ProgressUpdate(150).Apply(base).Progress, model.ProgressMax)
		gt.Equal(t, model.ProgressUpdate(-5).Apply(base).Progress, model.ProgressMin)
	})

	t.Run("does not modify the input", func(t *testing.T) {
		_ = model.StatusUpdate(model.WorkflowStatusFailed).Apply(base)
		gt.Equal(t, base.Status, model.WorkflowStatusRunning)
	})
}

func TestWorkflowUpdateValidate(t *testing.T) {
	gt.NoError(t, model.ProgressUpdate(50).Validate())
	gt.True(t, errors.Is(model.ProgressUpdate(101).Validate(), model.ErrInvalidInput))
	gt.True(t, errors.Is(model.StatusUpdate("archived").Validate(), model.ErrInvalidWorkflowStatus))
}
