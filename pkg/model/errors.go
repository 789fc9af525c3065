package model

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrInvalidInput is returned when a required field is empty or missing.
	// It is raised before any collaborator is called.
	ErrInvalidInput = goerr.New("invalid input")

	// ErrCollaborator is returned when an inference or audio call fails or times out.
	ErrCollaborator = goerr.New("collaborator failure")

	// ErrWorkflowNotFound is returned by controllers that require an existing task.
	// Store updates never return it; an unknown ID is a no-op there.
	ErrWorkflowNotFound = goerr.New("workflow not found")

	// ErrInvalidTransition is returned for a status change the state machine does not allow.
	ErrInvalidTransition = goerr.New("invalid workflow transition")

	// ErrPipelineBusy is returned when a voice recording is started while another is in flight.
	ErrPipelineBusy = goerr.New("voice pipeline is busy")

	ErrInvalidInteractionKind = goerr.New("invalid interaction kind")
	ErrInvalidWorkflowStatus  = goerr.New("invalid workflow status")
)

// CollaboratorError wraps a failed inference or audio call so that it matches
// both ErrCollaborator and the original cause with errors.Is.
func CollaboratorError(err error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(errors.Join(ErrCollaborator, err), msg, opts...)
}

// InputError reports a missing or empty required field.
func InputError(msg string, opts ...goerr.Option) error {
	return goerr.Wrap(ErrInvalidInput, msg, opts...)
}
