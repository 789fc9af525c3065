// Package voice runs the spoken round-trip: record, transcribe, respond,
// synthesize and play. Each stage can fail independently; transient flags in
// the store are always reset when a run ends.
package voice

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/report"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// SystemInstruction is sent with every transcribed utterance
const SystemInstruction = "You are a helpful AI development assistant. Provide concise, practical advice."

const (
	DefaultTimeout         = 30 * time.Second
	DefaultPlaybackTimeout = 2 * time.Minute
)

// Phase is the pipeline's position in a run
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseArming
	PhaseRecording
	PhaseProcessing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseArming:
		return "arming"
	case PhaseRecording:
		return "recording"
	case PhaseProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Pipeline runs at most one voice round-trip at a time
type Pipeline struct {
	store     *store.Store
	inference interfaces.Inference
	audio     interfaces.AudioIO
	reporter  *report.Reporter

	timeout         time.Duration
	playbackTimeout time.Duration

	mu       sync.Mutex
	phase    Phase
	handle   interfaces.CaptureHandle
	canceled bool // Cancel arrived while arming
}

// Result is the outcome of a completed textual round-trip
type Result struct {
	Interaction   model.Interaction
	Transcription string
	Response      string

	// PlaybackErr is set when synthesis or playback failed after the
	// interaction had already been recorded.
	PlaybackErr error
}

// Option is a functional option for Pipeline
type Option func(*Pipeline)

// WithTimeout bounds each inference call and the capture finalization
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPlaybackTimeout bounds playback of the synthesized reply
func WithPlaybackTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.playbackTimeout = d
		}
	}
}

// New creates a voice Pipeline
func New(st *store.Store, inference interfaces.Inference, audio interfaces.AudioIO, reporter *report.Reporter, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:           st,
		inference:       inference,
		audio:           audio,
		reporter:        reporter,
		timeout:         DefaultTimeout,
		playbackTimeout: DefaultPlaybackTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Phase returns the current phase
func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Start arms the pipeline and begins capturing audio. It returns
// ErrPipelineBusy without touching any state if a run is in flight.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.phase != PhaseIdle {
		phase := p.phase
		p.mu.Unlock()
		return goerr.Wrap(model.ErrPipelineBusy, "voice recording already in flight", goerr.V("phase", phase))
	}
	p.phase = PhaseArming
	p.canceled = false
	p.mu.Unlock()

	p.store.ClearError()
	p.store.SetFlag(store.FlagVoiceRecording, true)

	handle, err := p.audio.StartCapture(ctx)
	if err != nil {
		p.store.SetFlag(store.FlagVoiceRecording, false)
		p.mu.Lock()
		p.phase = PhaseIdle
		p.canceled = false
		p.mu.Unlock()
		return p.reporter.Failure(ctx, "Failed to access microphone",
			model.CollaboratorError(err, "failed to start audio capture"))
	}

	p.mu.Lock()
	if p.canceled {
		p.canceled = false
		p.store.SetFlag(store.FlagVoiceRecording, false)
		p.phase = PhaseIdle
		p.mu.Unlock()

		p.release(ctx, handle)
		logging.From(ctx).Debug("voice capture canceled while arming", "handle", handle.ID())
		return nil
	}
	p.handle = handle
	p.phase = PhaseRecording
	p.mu.Unlock()

	logging.From(ctx).Debug("voice capture started", "handle", handle.ID())
	p.reporter.Success(ctx, "Recording started...")
	return nil
}

// Cancel discards a recording. While the capture is still arming, the
// cancellation is recorded and Start releases the capture once it opens.
// It is a no-op when nothing is being recorded.
func (p *Pipeline) Cancel(ctx context.Context) error {
	p.mu.Lock()
	switch p.phase {
	case PhaseArming:
		p.canceled = true
		p.mu.Unlock()
		return nil
	case PhaseRecording:
	default:
		p.mu.Unlock()
		return nil
	}
	handle := p.handle
	p.handle = nil
	p.store.SetFlag(store.FlagVoiceRecording, false)
	p.phase = PhaseIdle
	p.mu.Unlock()

	p.release(ctx, handle)
	logging.From(ctx).Debug("voice capture canceled", "handle", handle.ID())
	return nil
}

// release stops a capture whose audio is discarded
func (p *Pipeline) release(ctx context.Context, handle interfaces.CaptureHandle) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if _, err := p.audio.StopCapture(ctx, handle); err != nil {
		logging.From(ctx).Warn("failed to release canceled capture", "error", err, "handle", handle.ID())
	}
}

// Stop ends the recording and runs the remaining stages. Stages 3 and 4
// abort the run on failure. A failure of stage 5 is reported through
// Result.PlaybackErr and the notifier, but the interaction is still recorded.
func (p *Pipeline) Stop(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	if p.phase != PhaseRecording {
		phase := p.phase
		p.mu.Unlock()
		return nil, model.InputError("no voice recording in progress", goerr.V("phase", phase))
	}
	handle := p.handle
	p.handle = nil
	p.phase = PhaseProcessing
	p.mu.Unlock()

	defer p.setPhase(PhaseIdle)

	p.store.SetFlag(store.FlagVoiceRecording, false)
	p.store.SetFlag(store.FlagProcessing, true)
	defer p.store.SetFlag(store.FlagProcessing, false)

	logger := logging.From(ctx).With("handle", handle.ID())

	// Stage 2: finalize capture
	audio, err := p.stopCapture(ctx, handle)
	if err != nil {
		return nil, p.reporter.Failure(ctx, "Failed to process voice input", err)
	}
	logger.Debug("voice captured", "bytes", len(audio.Data))

	// Stage 3: transcribe
	transcription, err := p.transcribe(ctx, audio)
	if err != nil {
		return nil, p.reporter.Failure(ctx, "Failed to transcribe voice input", err)
	}
	p.reporter.Success(ctx, "Voice transcribed!")
	logger.Debug("voice transcribed", "text", transcription)

	// Stage 4: respond
	response, err := p.respond(ctx, transcription)
	if err != nil {
		return nil, p.reporter.Failure(ctx, "Failed to get assistant response", err)
	}
	logger.Debug("assistant responded", "text", response)

	// Stage 5: synthesize and play
	playbackErr := p.speak(ctx, response)

	interaction := p.store.AppendInteraction(model.InteractionDraft{
		Message: "User: " + transcription + "\n\nAssistant: " + response,
		Kind:    model.InteractionKindVoice,
		Metadata: model.VoiceMetadata{
			Transcription: transcription,
			Response:      response,
		},
	})

	if playbackErr != nil {
		p.reporter.Failure(ctx, "Failed to play assistant response", playbackErr)
	} else {
		p.reporter.Success(ctx, "Voice interaction completed!")
	}

	return &Result{
		Interaction:   interaction,
		Transcription: transcription,
		Response:      response,
		PlaybackErr:   playbackErr,
	}, nil
}

func (p *Pipeline) setPhase(phase Phase) {
	p.mu.Lock()
	p.phase = phase
	p.mu.Unlock()
}

func (p *Pipeline) stopCapture(ctx context.Context, handle interfaces.CaptureHandle) (*model.Audio, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	audio, err := p.audio.StopCapture(ctx, handle)
	if err != nil {
		return nil, model.CollaboratorError(err, "failed to stop audio capture", goerr.V("handle", handle.ID()))
	}
	if audio.Empty() {
		return nil, model.CollaboratorError(goerr.New("captured audio is empty"), "failed to stop audio capture",
			goerr.V("handle", handle.ID()))
	}
	return audio, nil
}

func (p *Pipeline) transcribe(ctx context.Context, audio *model.Audio) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.inference.SpeechToText(ctx, audio)
	if err != nil {
		return "", model.CollaboratorError(err, "failed to convert speech to text")
	}
	if text == "" {
		return "", model.CollaboratorError(goerr.New("no speech detected"), "failed to convert speech to text")
	}
	return text, nil
}

func (p *Pipeline) respond(ctx context.Context, transcription string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reply, err := p.inference.Chat(ctx, transcription, SystemInstruction)
	if err != nil {
		return "", model.CollaboratorError(err, "failed to get assistant response")
	}
	return reply, nil
}

func (p *Pipeline) speak(ctx context.Context, text string) error {
	synthCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	speech, err := p.inference.TextToSpeech(synthCtx, text)
	if err != nil {
		return model.CollaboratorError(err, "failed to convert text to speech")
	}
	if speech.Empty() {
		return model.CollaboratorError(goerr.New("synthesized audio is empty"), "failed to convert text to speech")
	}

	playCtx, cancel := context.WithTimeout(ctx, p.playbackTimeout)
	defer cancel()

	if err := p.audio.Play(playCtx, speech); err != nil {
		return model.CollaboratorError(err, "failed to play audio")
	}
	return nil
}
