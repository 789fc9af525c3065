package adapter

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

var (
	// DefaultRecordCommand writes 16kHz mono WAV to stdout until interrupted
	DefaultRecordCommand = []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav", "-"}
	// DefaultPlayCommand reads WAV from stdin
	DefaultPlayCommand = []string{"aplay", "-q", "-"}
)

// CommandAudio implements interfaces.AudioIO by running external record and
// play commands. Recording stops on SIGINT.
type CommandAudio struct {
	record []string
	play   []string

	mu       sync.Mutex
	captures map[string]*capture
}

type capture struct {
	id     string
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func (c *capture) ID() string { return c.id }

type AudioOption func(*CommandAudio)

func WithRecordCommand(args ...string) AudioOption {
	return func(a *CommandAudio) {
		if len(args) > 0 {
			a.record = args
		}
	}
}

func WithPlayCommand(args ...string) AudioOption {
	return func(a *CommandAudio) {
		if len(args) > 0 {
			a.play = args
		}
	}
}

func NewCommandAudio(opts ...AudioOption) *CommandAudio {
	a := &CommandAudio{
		record:   DefaultRecordCommand,
		play:     DefaultPlayCommand,
		captures: make(map[string]*capture),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ interfaces.AudioIO = (*CommandAudio)(nil)

// StartCapture launches the record command. The process outlives ctx and
// runs until StopCapture.
func (a *CommandAudio) StartCapture(ctx context.Context) (interfaces.CaptureHandle, error) {
	c := &capture{
		id:  uuid.NewString(),
		cmd: exec.Command(a.record[0], a.record[1:]...),
	}
	c.cmd.Stdout = &c.stdout
	c.cmd.Stderr = &c.stderr

	if err := c.cmd.Start(); err != nil {
		return nil, goerr.Wrap(err, "failed to start record command", goerr.V("command", a.record))
	}

	a.mu.Lock()
	a.captures[c.id] = c
	a.mu.Unlock()

	logging.From(ctx).Debug("audio capture started", "capture_id", c.id, "pid", c.cmd.Process.Pid)
	return c, nil
}

func (a *CommandAudio) StopCapture(ctx context.Context, handle interfaces.CaptureHandle) (*model.Audio, error) {
	a.mu.Lock()
	c, ok := a.captures[handle.ID()]
	delete(a.captures, handle.ID())
	a.mu.Unlock()
	if !ok {
		return nil, goerr.New("unknown capture handle", goerr.V("capture_id", handle.ID()))
	}

	if err := c.cmd.Process.Signal(os.Interrupt); err != nil {
		logging.From(ctx).Warn("failed to interrupt record command", "error", err)
	}

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case err := <-done:
		// arecord exits non-zero on SIGINT; only fail when nothing was written
		if err != nil && c.stdout.Len() == 0 {
			return nil, goerr.Wrap(err, "record command failed",
				goerr.V("capture_id", c.id),
				goerr.V("stderr", c.stderr.String()))
		}
	case <-ctx.Done():
		_ = c.cmd.Process.Kill()
		<-done
		return nil, goerr.Wrap(ctx.Err(), "record command did not stop", goerr.V("capture_id", c.id))
	}

	return &model.Audio{Data: c.stdout.Bytes(), MIMEType: "audio/wav"}, nil
}

func (a *CommandAudio) Play(ctx context.Context, audio *model.Audio) error {
	if audio.Empty() {
		return goerr.New("no audio to play")
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.play[0], a.play[1:]...)
	cmd.Stdin = bytes.NewReader(audio.Data)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return goerr.Wrap(err, "play command failed",
			goerr.V("command", a.play),
			goerr.V("stderr", stderr.String()))
	}
	return nil
}
