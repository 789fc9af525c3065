// Package session wires one user session: a single store shared by every
// controller, the metrics sampler and the tick scheduler. A Session is
// constructed once and torn down with Close.
package session

import (
	"context"
	"time"

	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/metrics"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/chat"
	"github.com/m-mizutani/devpilot/pkg/usecase/code"
	"github.com/m-mizutani/devpilot/pkg/usecase/report"
	"github.com/m-mizutani/devpilot/pkg/usecase/voice"
	"github.com/m-mizutani/devpilot/pkg/usecase/workflow"
	"github.com/m-mizutani/devpilot/pkg/utils/clock"
	"github.com/m-mizutani/devpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultMetricsInterval is how often cached metrics are refreshed
const DefaultMetricsInterval = 5 * time.Second

// Session holds the controllers of one user session
type Session struct {
	store   *store.Store
	sampler *metrics.Sampler

	Code     *code.UseCase
	Chat     *chat.Session
	Voice    *voice.Pipeline
	Workflow *workflow.Controller

	stopRefresh func()
}

// NewInput contains parameters for creating a new session
type NewInput struct {
	Inference interfaces.Inference
	Audio     interfaces.AudioIO  // Optional: voice commands fail as "no microphone" when nil
	Notifier  interfaces.Notifier // Optional: notifications are dropped when nil
	Scheduler clock.Scheduler     // Optional: real-time ticker when nil

	Timeout          time.Duration
	WorkflowSteps    int
	WorkflowInterval time.Duration
	MetricsInterval  time.Duration
	StoreOptions     []store.Option
}

// New builds the store and every controller around it
func New(ctx context.Context, input NewInput) (*Session, error) {
	if input.Inference == nil {
		return nil, goerr.New("inference client is required")
	}
	if input.Audio == nil {
		input.Audio = noAudio{}
	}
	if input.Scheduler == nil {
		input.Scheduler = clock.NewTicker()
	}
	if input.MetricsInterval <= 0 {
		input.MetricsInterval = DefaultMetricsInterval
	}

	st := store.New(input.StoreOptions...)
	sampler := metrics.NewSampler()
	inference := metrics.Instrument(input.Inference, sampler)
	reporter := report.New(st, input.Notifier)

	s := &Session{
		store:   st,
		sampler: sampler,
		Code:    code.New(st, inference, reporter, code.WithTimeout(input.Timeout)),
		Chat:    chat.New(st, inference, reporter, chat.WithTimeout(input.Timeout)),
		Voice:   voice.New(st, inference, input.Audio, reporter, voice.WithTimeout(input.Timeout)),
		Workflow: workflow.New(st, inference, reporter,
			workflow.WithScheduler(input.Scheduler),
			workflow.WithSteps(input.WorkflowSteps),
			workflow.WithInterval(input.WorkflowInterval),
			workflow.WithTimeout(input.Timeout),
		),
	}

	s.stopRefresh = input.Scheduler.Every(input.MetricsInterval, func() bool {
		s.RefreshMetrics()
		return true
	})

	logging.From(ctx).Debug("session started")
	return s, nil
}

// Store returns the session's store
func (s *Session) Store() *store.Store {
	return s.store
}

// State returns a snapshot of the session state
func (s *Session) State() store.State {
	return s.store.State()
}

// RefreshMetrics recomputes cached metrics with the latest samples
func (s *Session) RefreshMetrics() model.Metrics {
	return s.store.RecomputeMetrics(s.sampler.Samples())
}

// SignIn records the authenticated user
func (s *Session) SignIn(user model.User) {
	s.store.SetUser(&user)
	s.store.SetAuthenticated(true)
}

// SignOut clears the authenticated user
func (s *Session) SignOut() {
	s.store.SetUser(nil)
	s.store.SetAuthenticated(false)
}

// Authorized reports the authorization signal
func (s *Session) Authorized() bool {
	return s.store.State().Authenticated
}

// Navigate records the current view
func (s *Session) Navigate(view model.ViewID) {
	s.store.SetView(view)
}

// Close stops background ticks and discards any armed recording
func (s *Session) Close(ctx context.Context) {
	s.stopRefresh()
	s.Workflow.Close()
	if err := s.Voice.Cancel(ctx); err != nil {
		logging.From(ctx).Warn("failed to cancel voice capture", "error", err)
	}
	logging.From(ctx).Debug("session closed")
}

// noAudio stands in when no audio device is configured
type noAudio struct{}

var errNoAudio = goerr.New("audio device is not configured")

func (noAudio) StartCapture(context.Context) (interfaces.CaptureHandle, error) {
	return nil, errNoAudio
}

func (noAudio) StopCapture(context.Context, interfaces.CaptureHandle) (*model.Audio, error) {
	return nil, errNoAudio
}

func (noAudio) Play(context.Context, *model.Audio) error {
	return errNoAudio
}
