package model

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type WorkflowID string

// NewWorkflowID generates a new unique WorkflowID
func NewWorkflowID() WorkflowID {
	return WorkflowID(uuid.New().String())
}

type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
)

// Validate checks if the status is valid
func (s WorkflowStatus) Validate() error {
	switch s {
	case WorkflowStatusPending, WorkflowStatusRunning, WorkflowStatusCompleted, WorkflowStatusFailed:
		return nil
	default:
		return ErrInvalidWorkflowStatus
	}
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
//
//	pending -> running
//	running -> pending | completed | failed
func (s WorkflowStatus) CanTransitionTo(next WorkflowStatus) bool {
	switch s {
	case WorkflowStatusPending:
		return next == WorkflowStatusRunning
	case WorkflowStatusRunning:
		switch next {
		case WorkflowStatusPending, WorkflowStatusCompleted, WorkflowStatusFailed:
			return true
		}
		return false
	case WorkflowStatusCompleted, WorkflowStatusFailed:
		return false
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s WorkflowStatus) Terminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed:
		return true
	case WorkflowStatusPending, WorkflowStatusRunning:
		return false
	default:
		return false
	}
}

const (
	ProgressMin = 0.0
	ProgressMax = 100.0
)

// WorkflowTask is a user-initiated automation unit.
type WorkflowTask struct {
	ID          WorkflowID     `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"`
	Progress    float64        `json:"progress"`
	Result      string         `json:"result,omitempty"`
}

// WorkflowDraft is the caller-supplied part of a new WorkflowTask.
type WorkflowDraft struct {
	Title       string
	Description string
	Result      string
}

// WorkflowUpdate is a partial update merged into an existing task. Nil fields
// are left untouched.
type WorkflowUpdate struct {
	Status   *WorkflowStatus
	Progress *float64
	Result   *string
}

// Validate checks the values carried by the update
func (u WorkflowUpdate) Validate() error {
	if u.Status != nil {
		if err := u.Status.Validate(); err != nil {
			return goerr.Wrap(err, "invalid status in update", goerr.V("status", *u.Status))
		}
	}
	if u.Progress != nil && (*u.Progress < ProgressMin || *u.Progress > ProgressMax) {
		return goerr.Wrap(ErrInvalidInput, "progress out of range", goerr.V("progress", *u.Progress))
	}
	return nil
}

// Apply returns a copy of t with the update merged in. Status invariants
// are enforced: completed forces progress 100 and pending forces progress 0.
func (u WorkflowUpdate) Apply(t WorkflowTask) WorkflowTask {
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Progress != nil {
		t.Progress = min(max(*u.Progress, ProgressMin), ProgressMax)
	}
	if u.Result != nil {
		t.Result = *u.Result
	}

	switch t.Status {
	case WorkflowStatusCompleted:
		t.Progress = ProgressMax
	case WorkflowStatusPending:
		t.Progress = ProgressMin
	case WorkflowStatusRunning, WorkflowStatusFailed:
	}
	return t
}

// StatusUpdate is a shorthand for an update changing only the status.
func StatusUpdate(s WorkflowStatus) WorkflowUpdate {
	return WorkflowUpdate{Status: &s}
}

// ProgressUpdate is a shorthand for an update changing only the progress.
func ProgressUpdate(p float64) WorkflowUpdate {
	return WorkflowUpdate{Progress: &p}
}

// WithResult returns a copy of u also setting the result.
func (u WorkflowUpdate) WithResult(r string) WorkflowUpdate {
	u.Result = &r
	return u
}

// WithProgress returns a copy of u also setting the progress.
func (u WorkflowUpdate) WithProgress(p float64) WorkflowUpdate {
	u.Progress = &p
	return u
}
