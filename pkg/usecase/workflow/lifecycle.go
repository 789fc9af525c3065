package workflow

import (
	"context"

	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Start moves a pending task to running and arms its progress ticks.
func (c *Controller) Start(ctx context.Context, id model.WorkflowID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkTransition(id, model.WorkflowStatusRunning); err != nil {
		return err
	}
	if _, ok := c.runs[id]; ok {
		return goerr.Wrap(model.ErrInvalidTransition, "workflow is already running", goerr.V("id", id))
	}

	c.store.UpdateWorkflowTask(id, model.StatusUpdate(model.WorkflowStatusRunning).WithProgress(model.ProgressMin))

	tickCtx := context.WithoutCancel(ctx)
	r := &run{done: make(chan struct{})}
	r.stop = c.scheduler.Every(c.interval, func() bool {
		return c.tick(tickCtx, id, r)
	})
	c.runs[id] = r

	logging.From(ctx).Debug("workflow started", "id", id, "steps", c.steps, "interval", c.interval)
	return nil
}

// Pause moves a running task back to pending. Its ticks stop and its
// progress is reset so that a later Start begins from zero.
func (c *Controller) Pause(ctx context.Context, id model.WorkflowID) error {
	if err := c.halt(id, model.StatusUpdate(model.WorkflowStatusPending)); err != nil {
		return err
	}
	logging.From(ctx).Debug("workflow paused", "id", id)
	return nil
}

// Fail moves a running task to failed with reason as its result.
func (c *Controller) Fail(ctx context.Context, id model.WorkflowID, reason string) error {
	if err := c.halt(id, model.StatusUpdate(model.WorkflowStatusFailed).WithResult(reason)); err != nil {
		return err
	}
	c.reporter.Failure(ctx, "Workflow failed", goerr.New(reason, goerr.V("id", id)))
	return nil
}

// Wait blocks until the task's schedule ends (completed, failed, paused or
// closed) or ctx is done. It returns immediately if the task is not running.
func (c *Controller) Wait(ctx context.Context, id model.WorkflowID) error {
	c.mu.Lock()
	r, ok := c.runs[id]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "interrupted while waiting for workflow", goerr.V("id", id))
	}
}

// halt validates the status change carried by update, applies it and detaches
// the task's schedule while holding c.mu, so concurrent halts see each other's
// writes. The schedule is stopped outside the lock because a tick in progress
// holds it.
func (c *Controller) halt(id model.WorkflowID, update model.WorkflowUpdate) error {
	c.mu.Lock()
	if err := c.checkTransition(id, *update.Status); err != nil {
		c.mu.Unlock()
		return err
	}
	c.store.UpdateWorkflowTask(id, update)

	r, ok := c.runs[id]
	if ok {
		delete(c.runs, id)
		close(r.done)
	}
	c.mu.Unlock()

	if ok {
		r.stop()
	}
	return nil
}

func (c *Controller) checkTransition(id model.WorkflowID, next model.WorkflowStatus) error {
	task, ok := c.store.Workflow(id)
	if !ok {
		return goerr.Wrap(model.ErrWorkflowNotFound, "no such workflow", goerr.V("id", id))
	}
	if !task.Status.CanTransitionTo(next) {
		return goerr.Wrap(model.ErrInvalidTransition, "workflow cannot change status",
			goerr.V("id", id), goerr.V("from", task.Status), goerr.V("to", next))
	}
	return nil
}

// tick advances one running task. It returns false when the schedule must end.
func (c *Controller) tick(ctx context.Context, id model.WorkflowID, r *run) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runs[id] != r {
		return false
	}

	task, ok := c.store.Workflow(id)
	if !ok || task.Status != model.WorkflowStatusRunning {
		c.finish(id, r)
		return false
	}

	r.ticks++
	if r.ticks >= c.steps {
		c.store.UpdateWorkflowTask(id, model.StatusUpdate(model.WorkflowStatusCompleted).
			WithProgress(model.ProgressMax).
			WithResult(CompletedResult))
		c.finish(id, r)
		logging.From(ctx).Debug("workflow completed", "id", id)
		c.reporter.Success(ctx, "Workflow completed!")
		return false
	}

	progress := float64(r.ticks) * model.ProgressMax / float64(c.steps)
	c.store.UpdateWorkflowTask(id, model.ProgressUpdate(max(progress, task.Progress)))
	return true
}

func (c *Controller) finish(id model.WorkflowID, r *run) {
	delete(c.runs, id)
	close(r.done)
}
