package chat

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/devpilot/pkg/interfaces"
	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/report"
)

// SystemPrompt is the base instruction of every text exchange
const SystemPrompt = "You are a helpful AI development assistant. Answer questions about code, tooling and workflows concisely."

const (
	DefaultTimeout = 30 * time.Second
	defaultTurns   = 5
)

// Session sends free-form text messages. The conversation context is read
// from the store on every call, so the session keeps no history of its own.
type Session struct {
	store     *store.Store
	inference interfaces.Inference
	reporter  *report.Reporter
	timeout   time.Duration
	turns     int
}

// Option is a functional option for Session
type Option func(*Session)

// WithTimeout bounds each inference call
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTurns sets how many previous text exchanges are sent as context
func WithTurns(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.turns = n
		}
	}
}

// New creates a chat Session
func New(st *store.Store, inference interfaces.Inference, reporter *report.Reporter, opts ...Option) *Session {
	s := &Session{
		store:     st,
		inference: inference,
		reporter:  reporter,
		timeout:   DefaultTimeout,
		turns:     defaultTurns,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send replies to message and records the exchange as a text interaction
func (s *Session) Send(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", s.reporter.Failure(ctx, "Please enter a message", model.InputError("message is empty"))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.inference.Chat(callCtx, message, s.systemContext())
	if err != nil {
		return "", s.reporter.Failure(ctx, "Failed to get assistant response",
			model.CollaboratorError(err, "failed to chat"))
	}

	s.store.AppendInteraction(model.InteractionDraft{
		Message: "User: " + message + "\n\nAssistant: " + reply,
		Kind:    model.InteractionKindText,
		Metadata: model.TextMetadata{
			Message:  message,
			Response: reply,
		},
	})

	return reply, nil
}

// systemContext renders the base prompt followed by the most recent text
// exchanges in chronological order
func (s *Session) systemContext() string {
	state := s.store.State()

	var turns []model.TextMetadata
	for i := len(state.Interactions) - 1; i >= 0 && len(turns) < s.turns; i-- {
		if md, ok := state.Interactions[i].Metadata.(model.TextMetadata); ok {
			turns = append(turns, md)
		}
	}
	if len(turns) == 0 {
		return SystemPrompt
	}

	var b strings.Builder
	b.WriteString(SystemPrompt)
	b.WriteString("\n\nConversation so far:")
	for i := len(turns) - 1; i >= 0; i-- {
		b.WriteString("\nUser: ")
		b.WriteString(turns[i].Message)
		b.WriteString("\nAssistant: ")
		b.WriteString(turns[i].Response)
	}
	return b.String()
}
