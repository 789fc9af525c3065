package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/devpilot/pkg/model"
	"github.com/m-mizutani/devpilot/pkg/store"
	"github.com/m-mizutani/devpilot/pkg/usecase/chat"
	"github.com/m-mizutani/devpilot/pkg/usecase/report"
	"github.com/m-mizutani/devpilot/pkg/usecase/testtools"
	"github.com/m-mizutani/gt"
)

func TestSend(t *testing.T) {
	st := store.New()
	inference := &testtools.Inference{
		ChatFunc: func(_ context.Context, message, _ string) (string, error) {
			return "echo: " + message, nil
		},
	}
	session := chat.New(st, inference, report.New(st, nil))

	reply, err := session.Send(context.Background(), "  how do I rebase?  ")
	gt.NoError(t, err)
	gt.Equal(t, reply, "echo: how do I rebase?")

	// the first message carries only the base prompt
	gt.Equal(t, inference.LastArgs("Chat"), []string{"how do I rebase?", chat.SystemPrompt})

	state := st.State()
	gt.A(t, state.Interactions).Length(1)
	gt.Equal(t, state.Interactions[0].Kind, model.InteractionKindText)
	gt.Equal(t, state.Interactions[0].Message, "User: how do I rebase?\n\nAssistant: echo: how do I rebase?")
	gt.Equal(t, state.Interactions[0].Metadata, model.InteractionMetadata(model.TextMetadata{
		Message:  "how do I rebase?",
		Response: "echo: how do I rebase?",
	}))
}

func TestSendCarriesConversation(t *testing.T) {
	st := store.New()
	inference := &testtools.Inference{}
	session := chat.New(st, inference, report.New(st, nil), chat.WithTurns(2))
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		_, err := session.Send(ctx, msg)
		gt.NoError(t, err)
	}
	// non-text interactions are not part of the conversation
	st.AppendInteraction(model.InteractionDraft{
		Message:  "Code analysis:\nfine",
		Kind:     model.InteractionKindCode,
		Metadata: model.CodeAnalysisMetadata{Analysis: "fine"},
	})

	_, err := session.Send(ctx, "fourth")
	gt.NoError(t, err)

	systemContext := inference.LastArgs("Chat")[1]
	gt.True(t, strings.HasPrefix(systemContext, chat.SystemPrompt))
	gt.S(t, systemContext).NotContains("User: first")
	gt.S(t, systemContext).NotContains("Code analysis")

	second := strings.Index(systemContext, "User: second")
	third := strings.Index(systemContext, "User: third")
	gt.True(t, second > 0)
	gt.True(t, third > second)
}

func TestSendWithoutHistory(t *testing.T) {
	st := store.New()
	inference := &testtools.Inference{}
	session := chat.New(st, inference, report.New(st, nil), chat.WithTurns(0))

	_, err := session.Send(context.Background(), "one")
	gt.NoError(t, err)
	_, err = session.Send(context.Background(), "two")
	gt.NoError(t, err)
	gt.Equal(t, inference.LastArgs("Chat")[1], chat.SystemPrompt)
}

func TestSendFailures(t *testing.T) {
	t.Run("empty message", func(t *testing.T) {
		st := store.New()
		inference := &testtools.Inference{}
		session := chat.New(st, inference, report.New(st, nil))

		_, err := session.Send(context.Background(), " ")
		gt.True(t, errors.Is(err, model.ErrInvalidInput))
		gt.Equal(t, inference.CallCount("Chat"), 0)
		gt.Equal(t, st.State().LastError, "Please enter a message")
	})

	t.Run("collaborator", func(t *testing.T) {
		st := store.New()
		notifier := &testtools.Notifier{}
		inference := &testtools.Inference{
			ChatFunc: func(context.Context, string, string) (string, error) {
				return "", errors.New("unavailable")
			},
		}
		session := chat.New(st, inference, report.New(st, notifier))

		_, err := session.Send(context.Background(), "hi")
		gt.True(t, errors.Is(err, model.ErrCollaborator))
		gt.A(t, st.State().Interactions).Length(0)
		gt.Equal(t, notifier.Failures(), []string{"Failed to get assistant response"})
	})
}
