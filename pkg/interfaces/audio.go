package interfaces

import (
	"context"

	"github.com/m-mizutani/devpilot/pkg/model"
)

// CaptureHandle identifies an in-progress recording
type CaptureHandle interface {
	// ID returns an identifier for logging
	ID() string
}

// AudioIO is the local audio device
type AudioIO interface {
	// StartCapture begins recording from the input device
	StartCapture(ctx context.Context) (CaptureHandle, error)

	// StopCapture ends the recording and returns the captured audio
	StopCapture(ctx context.Context, handle CaptureHandle) (*model.Audio, error)

	// Play plays audio on the output device and returns when playback ends
	Play(ctx context.Context, audio *model.Audio) error
}
