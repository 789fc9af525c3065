package workflow

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Create asks the inference collaborator for a step plan and stores a new
// pending task carrying it. No task is created when planning fails.
func (c *Controller) Create(ctx context.Context, description string) (*model.WorkflowTask, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, c.reporter.Failure(ctx, "Please enter a workflow description",
			model.InputError("workflow description is empty"))
	}

	planCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	plan, err := c.inference.CreateWorkflowPlan(planCtx, description)
	if err != nil {
		return nil, c.reporter.Failure(ctx, "Failed to create workflow",
			model.CollaboratorError(err, "failed to create workflow plan", goerr.V("description", description)))
	}

	task := c.store.CreateWorkflowTask(model.WorkflowDraft{
		Title:       Title(description),
		Description: description,
		Result:      plan,
	})

	c.store.AppendInteraction(model.InteractionDraft{
		Message: "Created workflow: " + description + "\n\nSteps:\n" + plan,
		Kind:    model.InteractionKindWorkflow,
		Metadata: model.WorkflowMetadata{
			WorkflowID: task.ID,
			Title:      task.Title,
			Steps:      plan,
		},
	})

	logging.From(ctx).Debug("workflow created", "id", task.ID, "title", task.Title)
	c.reporter.Success(ctx, "Workflow created successfully!")
	return &task, nil
}

// Title derives a task title from its description
func Title(description string) string {
	if utf8.RuneCountInString(description) <= titleLimit {
		return description
	}
	return string([]rune(description)[:titleLimit]) + "..."
}
