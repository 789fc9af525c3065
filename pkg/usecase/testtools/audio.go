package testtools

import (
	"context"
	"strconv"
	"sync"

	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
)

// Audio is an in-memory interfaces.AudioIO
type Audio struct {
	StartErr error
	// BeforeStart runs inside StartCapture before a handle is opened
	BeforeStart func(ctx context.Context)
	Captured    *model.Audio
	StopErr     error
	PlayErr     error

	mu      sync.Mutex
	next    int
	open    map[string]bool
	stopped int
	played  []*model.Audio
}

var _ interfaces.AudioIO = (*Audio)(nil)

type handle string

func (h handle) ID() string { return string(h) }

func (x *Audio) StartCapture(ctx context.Context) (interfaces.CaptureHandle, error) {
	if x.BeforeStart != nil {
		x.BeforeStart(ctx)
	}
	if x.StartErr != nil {
		return nil, x.StartErr
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.open == nil {
		x.open = make(map[string]bool)
	}
	x.next++
	h := handle("capture-" + strconv.Itoa(x.next))
	x.open[h.ID()] = true
	return h, nil
}

func (x *Audio) StopCapture(ctx context.Context, h interfaces.CaptureHandle) (*model.Audio, error) {
	x.mu.Lock()
	delete(x.open, h.ID())
	x.stopped++
	x.mu.Unlock()

	if x.StopErr != nil {
		return nil, x.StopErr
	}
	if x.Captured != nil {
		return x.Captured, nil
	}
	return &model.Audio{Data: []byte("recorded"), MIMEType: "audio/wav"}, nil
}

func (x *Audio) Play(ctx context.Context, audio *model.Audio) error {
	x.mu.Lock()
	x.played = append(x.played, audio)
	x.mu.Unlock()
	return x.PlayErr
}

// OpenCaptures returns the number of captures not yet stopped
func (x *Audio) OpenCaptures() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.open)
}

// Played returns the audio buffers passed to Play
func (x *Audio) Played() []*model.Audio {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]*model.Audio(nil), x.played...)
}
